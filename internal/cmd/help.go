package cmd

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderGenerateHelp renders the help text for the generate command with lipgloss styling
func renderGenerateHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginTop(1)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("10"))

	commandStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("14"))

	commentStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Italic(true)

	flagStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Examples"))
	b.WriteString("\n\n")

	examples := []struct {
		title   string
		command string
	}{
		{"Generate every label of a config", "gflabels generate -c screws.json"},
		{"Generate a single label", "gflabels generate -c screws.json -l M3x10"},
		{"Quick test with the first label only", "gflabels generate -c screws.json -t"},
		{"Limit parallel OpenSCAD runs and add previews", "gflabels generate -c screws.yaml -w 2 --preview-dir previews"},
	}
	for _, ex := range examples {
		b.WriteString(sectionStyle.Render(ex.title))
		b.WriteString("\n")
		b.WriteString("  " + commandStyle.Render(ex.command))
		b.WriteString("\n\n")
	}

	b.WriteString(sectionStyle.Render("Output per label:"))
	b.WriteString("\n")

	outputs := []struct {
		file string
		desc string
	}{
		{"<output_dir>/<name>.3mf", "Body and text as two objects with their filament slots"},
		{"<preview-dir>/<name>.png", "Preview image (only with --preview-dir)"},
	}

	// Calculate max width for alignment
	maxWidth := 0
	for _, o := range outputs {
		if len(o.file) > maxWidth {
			maxWidth = len(o.file)
		}
	}

	for _, o := range outputs {
		padding := strings.Repeat(" ", maxWidth-len(o.file)+2)
		b.WriteString("  " + flagStyle.Render(o.file) + padding + commentStyle.Render(o.desc))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(sectionStyle.Render("Create a config interactively"))
	b.WriteString("\n")
	b.WriteString("  " + commandStyle.Render("gflabels init -o screws.json"))
	b.WriteString("\n")

	return b.String()
}
