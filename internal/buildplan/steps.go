package buildplan

import (
	"context"

	"github.com/philipparndt/gflabels/internal/models"
	"github.com/philipparndt/gflabels/internal/renderer"
	"github.com/philipparndt/gflabels/internal/threemf"
)

// ExportStep renders one part of a label with the exporter
type ExportStep struct {
	Exporter   renderer.Exporter
	Params     models.EffectiveParameters
	Mode       renderer.Mode
	OutputFile string
}

func (s *ExportStep) Name() string {
	if s.Mode == renderer.ModePreview {
		return "preview"
	}
	return string(s.Mode) + " export"
}

func (s *ExportStep) Execute(ctx context.Context) error {
	return s.Exporter.Export(ctx, s.Params, s.Mode, s.OutputFile)
}

// AssembleStep merges the base and text exports into the final package
type AssembleStep struct {
	Assembler  Assembler
	BasePath   string
	TextPath   string
	OutputFile string
	Filaments  models.Filaments
}

func (s *AssembleStep) Name() string {
	return "assembly"
}

func (s *AssembleStep) Execute(ctx context.Context) error {
	return s.Assembler.Assemble(s.BasePath, s.TextPath, s.OutputFile, s.Filaments)
}

// VerifyStep re-reads the assembled package
type VerifyStep struct {
	File string
}

func (s *VerifyStep) Name() string {
	return "verification"
}

func (s *VerifyStep) Execute(ctx context.Context) error {
	return threemf.Verify(s.File)
}
