package buildplan

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/philipparndt/gflabels/internal/models"
	"github.com/philipparndt/gflabels/internal/renderer"
	"github.com/philipparndt/gflabels/internal/threemf"
)

// fakeExporter writes a placeholder file for every export unless fail says otherwise
type fakeExporter struct {
	fail  func(label string, mode renderer.Mode) error
	delay time.Duration

	mu       sync.Mutex
	calls    []string
	params   map[string]models.EffectiveParameters
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (f *fakeExporter) Export(ctx context.Context, params models.EffectiveParameters, mode renderer.Mode, outputPath string) error {
	current := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if current <= seen || f.maxSeen.CompareAndSwap(seen, current) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, params.Text+"/"+string(mode))
	if f.params == nil {
		f.params = map[string]models.EffectiveParameters{}
	}
	f.params[params.Text] = params
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail != nil {
		if err := f.fail(params.Text, mode); err != nil {
			return err
		}
	}
	return os.WriteFile(outputPath, []byte(string(mode)), 0o644)
}

// fakeAssembler writes the output file when both inputs exist
type fakeAssembler struct {
	err error
}

func (f *fakeAssembler) Assemble(basePath, textPath, outputFile string, filaments models.Filaments) error {
	if f.err != nil {
		return f.err
	}
	for _, path := range []string{basePath, textPath} {
		if _, err := os.Stat(path); err != nil {
			return err
		}
	}
	return os.WriteFile(outputFile, []byte("assembled"), 0o644)
}

func testLabels(n int) []models.LabelSpec {
	var labels []models.LabelSpec
	for i := 1; i <= n; i++ {
		labels = append(labels, models.LabelSpec{
			Name: fmt.Sprintf("label_%d", i),
			Text: fmt.Sprintf("L%d", i),
		})
	}
	return labels
}

func newTestRunner(t *testing.T, exporter renderer.Exporter) *Runner {
	t.Helper()
	return &Runner{
		Exporter:  exporter,
		Assembler: &fakeAssembler{},
		Defaults:  models.DefaultParameters{FastenerHead: "socket", Font: "Noto Sans", FontSize: 4},
		Filaments: models.Filaments{Base: 1, Text: 2},
		Workers:   4,
		OutputDir: t.TempDir(),
		TempDir:   t.TempDir(),
	}
}

func exportFailure(mode renderer.Mode) error {
	return &renderer.ExportError{Mode: mode, Reason: renderer.ReasonExit, ExitCode: 1, Diagnostic: "ERROR: boom"}
}

func TestRun_IsolatesFailures(t *testing.T) {
	exporter := &fakeExporter{
		fail: func(label string, mode renderer.Mode) error {
			if label == "L3" && mode == renderer.ModeText {
				return exportFailure(mode)
			}
			return nil
		},
	}
	runner := newTestRunner(t, exporter)

	var reported []string
	runner.OnResult = func(result JobResult) {
		reported = append(reported, result.Name)
	}

	summary := runner.Run(context.Background(), testLabels(5))

	if summary.Total != 5 || len(summary.Results) != 5 {
		t.Fatalf("got %d results for %d jobs, want 5", len(summary.Results), summary.Total)
	}
	if summary.Succeeded != 4 {
		t.Errorf("Succeeded = %d, want 4", summary.Succeeded)
	}
	if !summary.Failed() {
		t.Error("Failed() = false, want true")
	}
	if len(reported) != 5 {
		t.Errorf("OnResult called %d times, want 5", len(reported))
	}

	for _, result := range summary.Results {
		if result.Name != "label_3" {
			if !result.Success {
				t.Errorf("%s failed: %s", result.Name, result.Message)
			}
			if result.Message != "Generated "+result.Name+".3mf" {
				t.Errorf("%s message = %q", result.Name, result.Message)
			}
			continue
		}

		if result.Success {
			t.Fatal("label_3 succeeded, want failure")
		}
		if !strings.HasPrefix(result.Message, "Failed text export: ") {
			t.Errorf("message = %q, want text export failure", result.Message)
		}
		if !errors.Is(result.Err, renderer.ErrExportFailure) {
			t.Errorf("error %v does not match ErrExportFailure", result.Err)
		}
		var stepErr *StepError
		if !errors.As(result.Err, &stepErr) || stepErr.Step != "text export" {
			t.Errorf("step error = %v, want text export", result.Err)
		}
	}

	if _, err := os.Stat(filepath.Join(runner.OutputDir, "label_3.3mf")); !os.IsNotExist(err) {
		t.Error("failed label produced an output file")
	}
}

func TestRun_SingleWorker(t *testing.T) {
	exporter := &fakeExporter{delay: time.Millisecond}
	runner := newTestRunner(t, exporter)
	runner.Workers = 1

	summary := runner.Run(context.Background(), testLabels(4))

	if summary.Failed() {
		t.Fatalf("run failed: %+v", summary.Results)
	}
	if got := exporter.maxSeen.Load(); got != 1 {
		t.Errorf("max concurrent exports = %d, want 1", got)
	}

	var names []string
	for _, result := range summary.Results {
		names = append(names, result.Name)
	}
	if diff := cmp.Diff([]string{"label_1", "label_2", "label_3", "label_4"}, names); diff != "" {
		t.Errorf("serial run order mismatch (-want +got):\n%s", diff)
	}

	want := []string{"L1/base", "L1/text", "L2/base", "L2/text", "L3/base", "L3/text", "L4/base", "L4/text"}
	if diff := cmp.Diff(want, exporter.calls); diff != "" {
		t.Errorf("export calls mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	exporter := &fakeExporter{delay: 5 * time.Millisecond}
	runner := newTestRunner(t, exporter)
	runner.Workers = 2

	summary := runner.Run(context.Background(), testLabels(8))

	if summary.Succeeded != 8 {
		t.Fatalf("Succeeded = %d, want 8", summary.Succeeded)
	}
	if got := exporter.maxSeen.Load(); got > 2 {
		t.Errorf("max concurrent exports = %d, want <= 2", got)
	}
}

func TestRun_AssemblyFailure(t *testing.T) {
	runner := newTestRunner(t, &fakeExporter{})
	runner.Assembler = &fakeAssembler{err: &threemf.ContainerError{Container: "label_1_base.3mf", Err: threemf.ErrMalformedInput}}

	summary := runner.Run(context.Background(), testLabels(1))

	result := summary.Results[0]
	if result.Success {
		t.Fatal("job succeeded, want assembly failure")
	}
	if !strings.HasPrefix(result.Message, "Failed assembly: ") {
		t.Errorf("message = %q", result.Message)
	}
	if !errors.Is(result.Err, threemf.ErrMalformedInput) {
		t.Errorf("error %v does not match ErrMalformedInput", result.Err)
	}
}

func TestRun_PreviewFailureAfterPackage(t *testing.T) {
	exporter := &fakeExporter{
		fail: func(label string, mode renderer.Mode) error {
			if mode == renderer.ModePreview {
				return exportFailure(mode)
			}
			return nil
		},
	}
	runner := newTestRunner(t, exporter)
	runner.PreviewDir = t.TempDir()

	summary := runner.Run(context.Background(), testLabels(1))

	result := summary.Results[0]
	if result.Success || !strings.HasPrefix(result.Message, "Failed preview: ") {
		t.Fatalf("result = %+v, want preview failure", result)
	}
	if _, err := os.Stat(filepath.Join(runner.OutputDir, "label_1.3mf")); err != nil {
		t.Errorf("package missing after preview failure: %v", err)
	}
}

func TestRun_WritesPreview(t *testing.T) {
	runner := newTestRunner(t, &fakeExporter{})
	runner.PreviewDir = t.TempDir()

	summary := runner.Run(context.Background(), testLabels(2))

	if summary.Failed() {
		t.Fatalf("run failed: %+v", summary.Results)
	}
	for _, name := range []string{"label_1.png", "label_2.png"} {
		if _, err := os.Stat(filepath.Join(runner.PreviewDir, name)); err != nil {
			t.Errorf("preview %s missing: %v", name, err)
		}
	}
}

func TestRun_RecoversPanic(t *testing.T) {
	exporter := &fakeExporter{
		fail: func(label string, mode renderer.Mode) error {
			if label == "L2" && mode == renderer.ModeBase {
				panic("unexpected state")
			}
			return nil
		},
	}
	runner := newTestRunner(t, exporter)

	summary := runner.Run(context.Background(), testLabels(3))

	if summary.Total != 3 || summary.Succeeded != 2 {
		t.Fatalf("summary = %d/%d, want 2/3", summary.Succeeded, summary.Total)
	}
	for _, result := range summary.Results {
		if result.Name == "label_2" && result.Message != "Failed base export: panic: unexpected state" {
			t.Errorf("message = %q", result.Message)
		}
	}
}

func TestRun_RemovesWorkDirectories(t *testing.T) {
	runner := newTestRunner(t, &fakeExporter{
		fail: func(label string, mode renderer.Mode) error {
			if label == "L1" && mode == renderer.ModeText {
				return exportFailure(mode)
			}
			return nil
		},
	})

	runner.Run(context.Background(), testLabels(3))

	entries, err := os.ReadDir(runner.TempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("work directories left behind: %v", entries)
	}
}

func TestRun_ResolvesParameters(t *testing.T) {
	exporter := &fakeExporter{}
	runner := newTestRunner(t, exporter)

	head := "hex"
	text2 := "DIN 933"
	labels := []models.LabelSpec{
		{Name: "a", Text: "A"},
		{Name: "b", Text: "B", Text2: &text2, Overrides: models.Overrides{FastenerHead: &head}},
	}

	runner.Run(context.Background(), labels)

	if got := exporter.params["A"].FastenerHead; got != "socket" {
		t.Errorf("A fastener head = %q, want socket", got)
	}
	if got := exporter.params["B"].FastenerHead; got != "hex" {
		t.Errorf("B fastener head = %q, want hex", got)
	}
	if got := exporter.params["B"].Text2; got != "DIN 933" {
		t.Errorf("B text2 = %q, want DIN 933", got)
	}
}

func TestPlan_Steps(t *testing.T) {
	runner := newTestRunner(t, &fakeExporter{})
	runner.Verify = true
	runner.PreviewDir = "/previews"
	runner.OutputDir = "/out"

	plan := runner.Plan(models.LabelSpec{Name: "M3x10", Text: "M3x10"}, "/tmp/job")

	var names []string
	for _, step := range plan.Steps {
		names = append(names, step.Name())
	}
	want := []string{"base export", "text export", "assembly", "verification", "preview"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("steps mismatch (-want +got):\n%s", diff)
	}
	if plan.OutputFile != filepath.Join("/out", "M3x10.3mf") {
		t.Errorf("OutputFile = %s", plan.OutputFile)
	}
	if plan.PreviewFile != filepath.Join("/previews", "M3x10.png") {
		t.Errorf("PreviewFile = %s", plan.PreviewFile)
	}

	assemble := plan.Steps[2].(*AssembleStep)
	if assemble.BasePath != filepath.Join("/tmp/job", "M3x10_base.3mf") || assemble.TextPath != filepath.Join("/tmp/job", "M3x10_text.3mf") {
		t.Errorf("assembly inputs = %s, %s", assemble.BasePath, assemble.TextPath)
	}
}

// modelExporter writes minimal single-object 3MF exports so the real
// assembler can run
type modelExporter struct{}

func (modelExporter) Export(ctx context.Context, params models.EffectiveParameters, mode renderer.Mode, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create(threemf.ModelPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<model unit="millimeter" xmlns="%s">
 <resources>
  <object id="1" type="model"><mesh><vertices><vertex x="0" y="0" z="0"/></vertices><triangles></triangles></mesh></object>
 </resources>
 <build><item objectid="1"/></build>
</model>`, threemf.NamespaceCore)
	return zw.Close()
}

func TestRun_AssemblesVerifiedPackages(t *testing.T) {
	runner := newTestRunner(t, modelExporter{})
	runner.Assembler = threemf.NewAssembler()
	runner.Verify = true
	runner.Filaments = models.Filaments{Base: 3, Text: 5}

	summary := runner.Run(context.Background(), testLabels(3))

	if summary.Failed() {
		t.Fatalf("run failed: %+v", summary.Results)
	}

	pkg, err := (&threemf.Reader{}).Open(filepath.Join(runner.OutputDir, "label_2.3mf"))
	if err != nil {
		t.Fatal(err)
	}
	settings, err := pkg.Settings()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]int{"2": 3, "3": 5}, threemf.ExtruderAssignments(settings)); diff != "" {
		t.Errorf("extruder assignments mismatch (-want +got):\n%s", diff)
	}
}
