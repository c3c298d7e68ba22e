package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"

	"github.com/alecthomas/kong"
	"github.com/philipparndt/gflabels/internal/buildplan"
	"github.com/philipparndt/gflabels/internal/config"
	"github.com/philipparndt/gflabels/internal/inspect"
	"github.com/philipparndt/gflabels/internal/models"
	"github.com/philipparndt/gflabels/internal/preconditions"
	"github.com/philipparndt/gflabels/internal/renderer"
	"github.com/philipparndt/gflabels/internal/threemf"
	"github.com/philipparndt/gflabels/internal/ui"
	"github.com/philipparndt/gflabels/internal/wizard"
	"github.com/philipparndt/gflabels/version"
)

type CLI struct {
	Progress string `help:"Progress output: auto or plain (one line per step)" enum:"auto,plain" default:"auto"`

	Generate   *GenerateCmd   `cmd:"" help:"Generate Bambu-ready multi-material labels from a config file"`
	Assemble   *AssembleCmd   `cmd:"" help:"Assemble a base and a text 3MF export into one package"`
	Inspect    *InspectCmd    `cmd:"" help:"Inspect a 3MF file and show its contents"`
	Init       *InitCmd       `cmd:"" help:"Create a label config interactively"`
	Version    *VersionCmd    `cmd:"" help:"Show version information"`
	Completion *CompletionCmd `cmd:"" help:"Generate shell completion script"`
}

type GenerateCmd struct {
	Config     string `help:"Label config file (JSON or YAML)" short:"c" required:"" type:"existingfile"`
	Label      string `help:"Generate only the label with this name" short:"l" xor:"selection"`
	Test       bool   `help:"Generate only the first label" short:"t" xor:"selection"`
	Workers    int    `help:"Labels generated in parallel (default: number of CPUs)" short:"w" default:"0"`
	Output     string `help:"Output directory (overrides settings.output_dir)" short:"o" type:"path"`
	PreviewDir string `help:"Also render a PNG preview of each label into this directory" name:"preview-dir" type:"path"`
	Verify     bool   `help:"Check every assembled package before reporting it"`
}

// Help adds additional help text with examples
func (c *GenerateCmd) Help() string {
	return renderGenerateHelp()
}

func (c *GenerateCmd) Run(ctx context.Context) error {
	cfg, err := config.NewLoader().Load(c.Config)
	if err != nil {
		return err
	}
	labels, err := config.Select(cfg.Labels, c.Label, c.Test)
	if err != nil {
		return err
	}
	if c.Output != "" {
		cfg.Settings.OutputDir = c.Output
	}

	if err := preconditions.Check(cfg.Settings); err != nil {
		return err
	}
	for _, dir := range []string{cfg.Settings.OutputDir, c.PreviewDir} {
		if dir == "" {
			continue
		}
		if err := preconditions.PrepareOutputDir(dir); err != nil {
			return err
		}
	}

	exporter := renderer.NewOpenSCAD(cfg.Settings.OpenSCADPath, cfg.Settings.ScadFile, cfg.Settings.FontsDir, config.Timeout(cfg.Settings))
	runner := buildplan.NewRunner(cfg, exporter)
	runner.Workers = c.Workers
	runner.PreviewDir = c.PreviewDir
	runner.Verify = c.Verify

	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ui.PrintInfo(fmt.Sprintf("Generating %d label(s) to %s/ using %d workers", len(labels), cfg.Settings.OutputDir, workers))
	ui.PrintSeparator()

	runner.OnResult = func(result buildplan.JobResult) {
		if result.Success {
			ui.PrintResult(true, result.Message)
		} else {
			ui.PrintResult(false, fmt.Sprintf("%s: %s", result.Name, result.Message))
		}
	}
	if ui.IsVerbose() {
		runner.OnStep = func(label, step string) {
			ui.PrintStep(fmt.Sprintf("%s: %s", label, step))
		}
	}

	summary := runner.Run(ctx, labels)

	ui.PrintSeparator()
	ui.PrintHighlight(ui.FormatSummary(summary.Succeeded, summary.Total, summary.Duration))
	if summary.Failed() {
		return fmt.Errorf("%d of %d labels failed", summary.Total-summary.Succeeded, summary.Total)
	}
	return nil
}

type AssembleCmd struct {
	Base         string `arg:"" help:"3MF export of the label body" type:"existingfile"`
	Text         string `arg:"" help:"3MF export of the text and icon" type:"existingfile"`
	Output       string `help:"Output file path" short:"o" required:"" type:"path"`
	BaseFilament int    `help:"Filament slot of the label body" name:"base-filament" default:"1"`
	TextFilament int    `help:"Filament slot of the text and icon" name:"text-filament" default:"2"`
	Verify       bool   `help:"Check the assembled package"`
	Open         bool   `help:"Open the result file in the default application after assembling"`
}

func (c *AssembleCmd) Run() error {
	filaments := models.Filaments{Base: c.BaseFilament, Text: c.TextFilament}
	if err := config.ValidateFilaments(filaments); err != nil {
		return err
	}

	if err := threemf.NewAssembler().Assemble(c.Base, c.Text, c.Output, filaments); err != nil {
		return err
	}
	if c.Verify {
		if err := threemf.Verify(c.Output); err != nil {
			return err
		}
	}
	ui.PrintSuccess("Assembled " + c.Output)

	if c.Open {
		if err := openFile(c.Output); err != nil {
			ui.PrintError("Failed to open file: " + err.Error())
		}
	}
	return nil
}

// openFile opens a file in the default application for the current platform
func openFile(filepath string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", filepath)
	case "linux":
		cmd = exec.Command("xdg-open", filepath)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", filepath)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

type InspectCmd struct {
	File   string `arg:"" help:"3MF file to inspect" type:"existingfile"`
	XML    bool   `help:"Print the syntax highlighted model document" name:"xml"`
	Verify bool   `help:"Check the package is a valid assembled label"`
}

func (c *InspectCmd) Run() error {
	inspector := inspect.NewInspector()
	if c.XML {
		if err := inspector.Highlight(os.Stdout, c.File); err != nil {
			return err
		}
	} else if err := inspector.Inspect(c.File); err != nil {
		return err
	}

	if c.Verify {
		if err := threemf.Verify(c.File); err != nil {
			return err
		}
		ui.PrintSuccess("Package is a valid two-material label")
	}
	return nil
}

type InitCmd struct {
	Output string `help:"Config file to create (.json, .yaml or .yml; default asks for a name)" short:"o"`
}

func (c *InitCmd) Run(ctx context.Context) error {
	ui.PrintTitle("gflabels config wizard")

	result, err := wizard.New(wizard.NewSurveyPrompter()).Run(ctx, c.Output)
	if errors.Is(err, wizard.ErrAborted) {
		ui.PrintWarning("Aborted.")
		return nil
	}
	if err != nil {
		return err
	}

	if err := wizard.Save(result.Path, result.Config); err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Saved %s (%d label(s))", result.Path, len(result.Config.Labels)))
	ui.PrintInfo("Generate with: gflabels generate --config " + result.Path)
	return nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	info := version.Get()
	fmt.Println(info.String())
	return nil
}

func newParser(cli *CLI, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("gflabels"),
		kong.Description("Multi-material Gridfinity label generator for Bambu printers"),
		kong.UsageOnError(),
	}, options...)
	return kong.New(cli, options...)
}

// Parse parses command line arguments and executes the appropriate command
func Parse() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli := &CLI{}
	parser, err := newParser(cli, kong.BindTo(ctx, (*context.Context)(nil)))
	if err != nil {
		panic(err)
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := kctx.Run(); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}
