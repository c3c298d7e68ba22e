package renderer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/philipparndt/gflabels/internal/models"
)

// Mode selects which part of a label OpenSCAD renders
type Mode string

const (
	ModeBase    Mode = "base"
	ModeText    Mode = "text"
	ModePreview Mode = "preview"
)

// DefaultTimeout bounds a single OpenSCAD invocation
const DefaultTimeout = 180 * time.Second

const fontPathEnv = "OPENSCAD_FONT_PATH"

// ErrExportFailure matches every *ExportError
var ErrExportFailure = errors.New("export failure")

// Reason tells export failures apart
type Reason string

const (
	ReasonTimeout       Reason = "timed out"
	ReasonExit          Reason = "exited with an error"
	ReasonMissingOutput Reason = "did not create the output file"
	ReasonStart         Reason = "could not be started"
)

// ExportError describes a failed OpenSCAD invocation
type ExportError struct {
	Mode       Mode
	Reason     Reason
	ExitCode   int
	Diagnostic string
	Err        error
}

func (e *ExportError) Error() string {
	msg := fmt.Sprintf("OpenSCAD %s", e.Reason)
	if e.Reason == ReasonExit {
		msg = fmt.Sprintf("%s (status %d)", msg, e.ExitCode)
	}
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	return msg
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

func (e *ExportError) Is(target error) bool {
	return target == ErrExportFailure
}

// Exporter renders one label in the given mode to outputPath
type Exporter interface {
	Export(ctx context.Context, params models.EffectiveParameters, mode Mode, outputPath string) error
}

type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

type commandRunner interface {
	Run(ctx context.Context, env []string, name string, args ...string) (commandResult, error)
}

type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, env []string, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = env
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// OpenSCAD exports labels by running the OpenSCAD binary against the label
// library. Each Export call is independent and safe for concurrent use.
type OpenSCAD struct {
	Path     string
	ScadFile string
	FontsDir string
	Timeout  time.Duration

	runner  commandRunner
	stat    func(name string) (os.FileInfo, error)
	environ func() []string
}

// NewOpenSCAD creates an exporter for the binary at path
func NewOpenSCAD(path, scadFile, fontsDir string, timeout time.Duration) *OpenSCAD {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OpenSCAD{
		Path:     path,
		ScadFile: scadFile,
		FontsDir: fontsDir,
		Timeout:  timeout,
		runner:   &execRunner{},
		stat:     os.Stat,
		environ:  os.Environ,
	}
}

// Export runs OpenSCAD once. The invocation is killed when the timeout
// expires; it is never retried.
func (o *OpenSCAD) Export(ctx context.Context, params models.EffectiveParameters, mode Mode, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	result, err := o.runner.Run(ctx, o.env(), o.Path, Args(o.ScadFile, params, mode, outputPath)...)
	if err != nil {
		exportErr := &ExportError{Mode: mode, ExitCode: result.ExitCode, Err: err}
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			exportErr.Reason = ReasonTimeout
			exportErr.Diagnostic = fmt.Sprintf("no result after %s", o.Timeout)
		case result.ExitCode > 0:
			exportErr.Reason = ReasonExit
			exportErr.Diagnostic = diagnostic(result.Stderr)
		default:
			exportErr.Reason = ReasonStart
			exportErr.Diagnostic = err.Error()
		}
		return exportErr
	}

	if _, err := o.stat(outputPath); err != nil {
		return &ExportError{
			Mode:       mode,
			Reason:     ReasonMissingOutput,
			Diagnostic: outputPath,
			Err:        err,
		}
	}

	return nil
}

// env returns the process environment with the bundled fonts directory
// prepended to OpenSCAD's font search path
func (o *OpenSCAD) env() []string {
	env := o.environ()
	if o.FontsDir == "" {
		return env
	}
	if info, err := o.stat(o.FontsDir); err != nil || !info.IsDir() {
		return env
	}

	value := o.FontsDir
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if existing, ok := strings.CutPrefix(kv, fontPathEnv+"="); ok {
			if existing != "" {
				value += string(os.PathListSeparator) + existing
			}
			continue
		}
		out = append(out, kv)
	}
	return append(out, fontPathEnv+"="+value)
}

// Args builds the OpenSCAD command line for one label
func Args(scadFile string, params models.EffectiveParameters, mode Mode, outputPath string) []string {
	args := []string{"-o", outputPath}

	exportMode := string(mode)
	if mode == ModePreview {
		args = append(args, "--autocenter", "--viewall", "--projection=ortho", "--imgsize=1400,420")
		exportMode = "all"
	} else {
		args = append(args, "--enable=lazy-union", "--enable=manifold")
	}

	for _, def := range []string{
		"Text1=" + scadString(params.Text),
		"Text2=" + scadString(params.Text2),
		"Fastener_Head=" + scadString(params.FastenerHead),
		"Fastener_Shaft=" + scadString(params.FastenerShaft),
		"Fastener_Threads=" + scadString(params.FastenerThreads),
		"Fastener_Driver=" + scadString(params.FastenerDriver),
		"Fastener_Orientation=" + scadString(params.FastenerOrientation),
		"Fastener_Scale=" + scadNumber(params.FastenerScale),
		"Show_Fastener=" + strconv.FormatBool(params.ShowFastener),
		"Select_Hardware=" + scadString(params.Hardware),
		"Hardware_Scale=" + scadNumber(params.HardwareScale),
		"Text1_Font=" + scadString(params.Font),
		"Text1_Font_Style=" + scadString(params.FontStyle),
		"Text1_Font_Size=" + scadNumber(params.FontSize),
		// flush text, required for multi-material prints
		"label_surface=02",
		"Export_Mode=" + scadString(exportMode),
	} {
		args = append(args, "-D", def)
	}

	return append(args, scadFile)
}

var scadEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func scadString(s string) string {
	return `"` + scadEscaper.Replace(s) + `"`
}

func scadNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// diagnostic keeps the tail of OpenSCAD's stderr, which is where the
// actual error ends up after the progress output
func diagnostic(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	return strings.Join(lines, "\n")
}
