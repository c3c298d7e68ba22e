package buildplan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/philipparndt/gflabels/internal/config"
	"github.com/philipparndt/gflabels/internal/models"
	"github.com/philipparndt/gflabels/internal/renderer"
	"github.com/philipparndt/gflabels/internal/threemf"
	"golang.org/x/sync/errgroup"
)

// BuildStep represents a single step of a label job
type BuildStep interface {
	Name() string
	Execute(ctx context.Context) error
}

// Assembler merges the two exports of a label into one package
type Assembler interface {
	Assemble(basePath, textPath, outputFile string, filaments models.Filaments) error
}

// BuildPlan contains all steps needed to produce one label
type BuildPlan struct {
	Label       models.LabelSpec
	Steps       []BuildStep
	OutputFile  string
	PreviewFile string
}

// StepError records which step of a job failed
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("Failed %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// JobResult is the outcome of one label job
type JobResult struct {
	Success  bool
	Name     string
	Message  string
	Err      error
	Duration time.Duration
}

// Summary aggregates all results of a run
type Summary struct {
	Results   []JobResult
	Succeeded int
	Total     int
	Duration  time.Duration
}

// Failed reports whether at least one job failed
func (s Summary) Failed() bool {
	return s.Succeeded < s.Total
}

// Runner generates labels on a bounded pool of workers. Every label runs in
// its own temporary directory; the only shared locations are OutputDir and
// PreviewDir, where each job writes files named after its label.
type Runner struct {
	Exporter  renderer.Exporter
	Assembler Assembler
	Defaults  models.DefaultParameters
	Filaments models.Filaments

	// Workers bounds the number of concurrent jobs; <= 0 uses all CPUs
	Workers    int
	OutputDir  string
	PreviewDir string
	// Verify re-reads every assembled package before the job succeeds
	Verify bool
	// TempDir is the parent of the per-job work directories
	TempDir string

	// OnResult receives every result in completion order, from a single goroutine
	OnResult func(JobResult)
	// OnStep is called before each step; it may be called concurrently
	OnStep func(label, step string)
}

// NewRunner creates a runner for the loaded configuration
func NewRunner(cfg *models.Config, exporter renderer.Exporter) *Runner {
	return &Runner{
		Exporter:  exporter,
		Assembler: threemf.NewAssembler(),
		Defaults:  cfg.Defaults,
		Filaments: cfg.Settings.Filaments,
		OutputDir: cfg.Settings.OutputDir,
	}
}

// Plan creates the build plan of a single label inside workDir
func (r *Runner) Plan(label models.LabelSpec, workDir string) *BuildPlan {
	params := config.Resolve(r.Defaults, label)

	basePath := filepath.Join(workDir, label.Name+"_base.3mf")
	textPath := filepath.Join(workDir, label.Name+"_text.3mf")

	plan := &BuildPlan{
		Label:      label,
		OutputFile: filepath.Join(r.OutputDir, label.Name+".3mf"),
	}

	plan.Steps = append(plan.Steps,
		&ExportStep{Exporter: r.Exporter, Params: params, Mode: renderer.ModeBase, OutputFile: basePath},
		&ExportStep{Exporter: r.Exporter, Params: params, Mode: renderer.ModeText, OutputFile: textPath},
		&AssembleStep{
			Assembler:  r.Assembler,
			BasePath:   basePath,
			TextPath:   textPath,
			OutputFile: plan.OutputFile,
			Filaments:  r.Filaments,
		},
	)

	if r.Verify {
		plan.Steps = append(plan.Steps, &VerifyStep{File: plan.OutputFile})
	}

	if r.PreviewDir != "" {
		plan.PreviewFile = filepath.Join(r.PreviewDir, label.Name+".png")
		plan.Steps = append(plan.Steps, &ExportStep{
			Exporter:   r.Exporter,
			Params:     params,
			Mode:       renderer.ModePreview,
			OutputFile: plan.PreviewFile,
		})
	}

	return plan
}

// Run processes all labels and blocks until every job has reported. A failing
// job never stops its siblings.
func (r *Runner) Run(ctx context.Context, labels []models.LabelSpec) Summary {
	start := time.Now()

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan JobResult)

	go func() {
		var g errgroup.Group
		g.SetLimit(workers)
		for _, label := range labels {
			label := label
			g.Go(func() error {
				results <- r.runJob(ctx, label)
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	summary := Summary{Total: len(labels)}
	for result := range results {
		summary.Results = append(summary.Results, result)
		if result.Success {
			summary.Succeeded++
		}
		if r.OnResult != nil {
			r.OnResult(result)
		}
	}
	summary.Duration = time.Since(start)

	return summary
}

// runJob executes the plan of one label. Errors and panics end up in the
// returned result.
func (r *Runner) runJob(ctx context.Context, label models.LabelSpec) (result JobResult) {
	start := time.Now()
	step := "setup"

	defer func() {
		if p := recover(); p != nil {
			result = failure(label.Name, &StepError{Step: step, Err: fmt.Errorf("panic: %v", p)})
		}
		result.Duration = time.Since(start)
	}()

	workDir, err := os.MkdirTemp(r.TempDir, "gflabels-*")
	if err != nil {
		return failure(label.Name, &StepError{Step: step, Err: fmt.Errorf("%w: error creating work directory: %w", threemf.ErrIO, err)})
	}
	defer os.RemoveAll(workDir)

	plan := r.Plan(label, workDir)
	for _, s := range plan.Steps {
		step = s.Name()
		if r.OnStep != nil {
			r.OnStep(label.Name, step)
		}
		if err := s.Execute(ctx); err != nil {
			return failure(label.Name, &StepError{Step: step, Err: err})
		}
	}

	return JobResult{
		Success: true,
		Name:    label.Name,
		Message: fmt.Sprintf("Generated %s", filepath.Base(plan.OutputFile)),
	}
}

func failure(name string, err *StepError) JobResult {
	return JobResult{
		Name:    name,
		Message: err.Error(),
		Err:     err,
	}
}
