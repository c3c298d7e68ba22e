package renderer

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/philipparndt/gflabels/internal/models"
)

type fakeRunner struct {
	run func(ctx context.Context, env []string, name string, args ...string) (commandResult, error)
}

func (f *fakeRunner) Run(ctx context.Context, env []string, name string, args ...string) (commandResult, error) {
	if f.run == nil {
		return commandResult{}, nil
	}
	return f.run(ctx, env, name, args...)
}

func newTestExporter(t *testing.T, runner commandRunner) *OpenSCAD {
	t.Helper()
	exporter := NewOpenSCAD("/opt/openscad", "/labels/labels.scad", "", time.Second)
	exporter.runner = runner
	exporter.environ = func() []string { return []string{"HOME=/home/test"} }
	return exporter
}

func testParams() models.EffectiveParameters {
	return models.EffectiveParameters{
		Text:                "M3x10",
		Text2:               "DIN 912",
		FastenerHead:        "socket",
		FastenerShaft:       "10",
		FastenerThreads:     "M3",
		FastenerDriver:      "hex",
		FastenerOrientation: "landscape",
		FastenerScale:       1,
		ShowFastener:        true,
		Hardware:            "none",
		HardwareScale:       1.5,
		Font:                "Noto Sans",
		FontStyle:           "Bold",
		FontSize:            4.5,
	}
}

// writeOutput simulates OpenSCAD creating the file named after -o
func writeOutput(t *testing.T, args []string) {
	t.Helper()
	for i, arg := range args {
		if arg == "-o" && i+1 < len(args) {
			if err := os.WriteFile(args[i+1], []byte("3mf"), 0o644); err != nil {
				t.Fatalf("failed to write output: %v", err)
			}
			return
		}
	}
	t.Fatalf("no -o argument in %v", args)
}

func TestArgs_Export(t *testing.T) {
	got := Args("/labels/labels.scad", testParams(), ModeText, "/tmp/job/M3x10_text.3mf")
	want := []string{
		"-o", "/tmp/job/M3x10_text.3mf",
		"--enable=lazy-union", "--enable=manifold",
		"-D", `Text1="M3x10"`,
		"-D", `Text2="DIN 912"`,
		"-D", `Fastener_Head="socket"`,
		"-D", `Fastener_Shaft="10"`,
		"-D", `Fastener_Threads="M3"`,
		"-D", `Fastener_Driver="hex"`,
		"-D", `Fastener_Orientation="landscape"`,
		"-D", `Fastener_Scale=1`,
		"-D", `Show_Fastener=true`,
		"-D", `Select_Hardware="none"`,
		"-D", `Hardware_Scale=1.5`,
		"-D", `Text1_Font="Noto Sans"`,
		"-D", `Text1_Font_Style="Bold"`,
		"-D", `Text1_Font_Size=4.5`,
		"-D", `label_surface=02`,
		"-D", `Export_Mode="text"`,
		"/labels/labels.scad",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Args() mismatch (-want +got):\n%s", diff)
	}
}

func TestArgs_Preview(t *testing.T) {
	got := Args("/labels/labels.scad", testParams(), ModePreview, "/previews/M3x10.png")

	if diff := cmp.Diff([]string{"-o", "/previews/M3x10.png", "--autocenter", "--viewall", "--projection=ortho", "--imgsize=1400,420"}, got[:6]); diff != "" {
		t.Errorf("preview flags mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(strings.Join(got, " "), `Export_Mode="all"`) {
		t.Errorf("preview does not export all parts: %v", got)
	}
	for _, arg := range got {
		if strings.HasPrefix(arg, "--enable=") {
			t.Errorf("preview should not enable experimental features, got %s", arg)
		}
	}
}

func TestArgs_EscapesText(t *testing.T) {
	params := testParams()
	params.Text = `3/8" \ bolt`
	got := Args("labels.scad", params, ModeBase, "out.3mf")
	if got[5] != `Text1="3/8\" \\ bolt"` {
		t.Errorf("Text1 define = %s", got[5])
	}
}

func TestExport_Success(t *testing.T) {
	output := filepath.Join(t.TempDir(), "M3x10_base.3mf")

	var gotName string
	var gotArgs []string
	exporter := newTestExporter(t, &fakeRunner{
		run: func(ctx context.Context, env []string, name string, args ...string) (commandResult, error) {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("export runs without a deadline")
			}
			gotName = name
			gotArgs = args
			writeOutput(t, args)
			return commandResult{}, nil
		},
	})

	if err := exporter.Export(context.Background(), testParams(), ModeBase, output); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if gotName != "/opt/openscad" {
		t.Errorf("command = %q, want /opt/openscad", gotName)
	}
	if diff := cmp.Diff(Args("/labels/labels.scad", testParams(), ModeBase, output), gotArgs); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestExport_Failures(t *testing.T) {
	tests := []struct {
		name       string
		run        func(ctx context.Context) (commandResult, error)
		wantReason Reason
		wantDiag   string
	}{
		{
			name: "non-zero exit",
			run: func(ctx context.Context) (commandResult, error) {
				return commandResult{Stderr: "Compiling design...\nERROR: Parser error in line 12\n", ExitCode: 1}, errors.New("exit status 1")
			},
			wantReason: ReasonExit,
			wantDiag:   "ERROR: Parser error in line 12",
		},
		{
			name: "timeout",
			run: func(ctx context.Context) (commandResult, error) {
				<-ctx.Done()
				return commandResult{ExitCode: -1}, ctx.Err()
			},
			wantReason: ReasonTimeout,
			wantDiag:   "no result after",
		},
		{
			name: "missing output",
			run: func(ctx context.Context) (commandResult, error) {
				return commandResult{}, nil
			},
			wantReason: ReasonMissingOutput,
			wantDiag:   "M3x10_text.3mf",
		},
		{
			name: "binary not found",
			run: func(ctx context.Context) (commandResult, error) {
				return commandResult{ExitCode: -1}, exec.ErrNotFound
			},
			wantReason: ReasonStart,
			wantDiag:   "executable file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := newTestExporter(t, &fakeRunner{
				run: func(ctx context.Context, env []string, name string, args ...string) (commandResult, error) {
					return tt.run(ctx)
				},
			})
			exporter.Timeout = 10 * time.Millisecond

			err := exporter.Export(context.Background(), testParams(), ModeText, filepath.Join(t.TempDir(), "M3x10_text.3mf"))
			if !errors.Is(err, ErrExportFailure) {
				t.Fatalf("Export() error = %v, want ErrExportFailure", err)
			}

			var exportErr *ExportError
			if !errors.As(err, &exportErr) {
				t.Fatalf("error %v is not an *ExportError", err)
			}
			if exportErr.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", exportErr.Reason, tt.wantReason)
			}
			if exportErr.Mode != ModeText {
				t.Errorf("mode = %q, want text", exportErr.Mode)
			}
			if !strings.Contains(exportErr.Diagnostic, tt.wantDiag) {
				t.Errorf("diagnostic = %q, want it to contain %q", exportErr.Diagnostic, tt.wantDiag)
			}
		})
	}
}

func TestExport_FontPath(t *testing.T) {
	fontsDir := t.TempDir()

	tests := []struct {
		name     string
		fontsDir string
		environ  []string
		want     string
	}{
		{"prepends to existing path", fontsDir, []string{"OPENSCAD_FONT_PATH=/usr/share/fonts"}, fontsDir + string(os.PathListSeparator) + "/usr/share/fonts"},
		{"sets path", fontsDir, []string{"HOME=/home/test"}, fontsDir},
		{"skips missing directory", filepath.Join(fontsDir, "missing"), []string{"HOME=/home/test"}, ""},
		{"keeps existing path without fonts dir", "", []string{"OPENSCAD_FONT_PATH=/usr/share/fonts"}, "/usr/share/fonts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			exporter := newTestExporter(t, &fakeRunner{
				run: func(ctx context.Context, env []string, name string, args ...string) (commandResult, error) {
					for _, kv := range env {
						if value, ok := strings.CutPrefix(kv, "OPENSCAD_FONT_PATH="); ok {
							if got != "" {
								t.Errorf("OPENSCAD_FONT_PATH set twice")
							}
							got = value
						}
					}
					writeOutput(t, args)
					return commandResult{}, nil
				},
			})
			exporter.FontsDir = tt.fontsDir
			exporter.environ = func() []string { return tt.environ }

			if err := exporter.Export(context.Background(), testParams(), ModeBase, filepath.Join(t.TempDir(), "out.3mf")); err != nil {
				t.Fatalf("Export() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("OPENSCAD_FONT_PATH = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewOpenSCAD_DefaultTimeout(t *testing.T) {
	if got := NewOpenSCAD("openscad", "labels.scad", "", 0).Timeout; got != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", got, DefaultTimeout)
	}
}
