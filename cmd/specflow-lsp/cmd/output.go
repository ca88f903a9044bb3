package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/socket"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/dialect"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/feature"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/workspace"
)

// style returns s, or a plain style when color is disabled.
func style(s lipgloss.Style) lipgloss.Style {
	if noColorFlag {
		return lipgloss.NewStyle()
	}
	return s
}

func titleStyle() lipgloss.Style { return style(lipgloss.NewStyle().Bold(true)) }
func pathStyle() lipgloss.Style  { return style(lipgloss.NewStyle().Foreground(lipgloss.Color("6"))) }
func keyStyle() lipgloss.Style   { return style(lipgloss.NewStyle().Foreground(lipgloss.Color("5"))) }
func okStyle() lipgloss.Style    { return style(lipgloss.NewStyle().Foreground(lipgloss.Color("2"))) }
func warnStyle() lipgloss.Style  { return style(lipgloss.NewStyle().Foreground(lipgloss.Color("3"))) }
func errorStyle() lipgloss.Style {
	return style(lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true))
}
func mutedStyle() lipgloss.Style { return style(lipgloss.NewStyle().Faint(true)) }

func printField(name, value string) {
	fmt.Printf("  %-8s %s\n", name+":", value)
}

// relPath shortens path to root-relative form when it lies below root.
func relPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

func count(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// formatHealth formats a HealthResult for terminal display.
func formatHealth(h *socket.HealthResult) string {
	var sb strings.Builder
	sb.WriteString(titleStyle().Render("specflow-lsp daemon") + "\n")
	fmt.Fprintf(&sb, "  %-10s %s\n", "Status:", okStyle().Render(h.Status))
	fmt.Fprintf(&sb, "  %-10s %s\n", "Root:", h.Root)
	fmt.Fprintf(&sb, "  %-10s %d (%d open, %d failed)\n", "Features:", h.FeatureFiles, h.OpenFiles, h.FailedFiles)
	fmt.Fprintf(&sb, "  %-10s %d\n", "Steps:", h.Steps)
	fmt.Fprintf(&sb, "  %-10s %d files, %d declarations\n", "Bindings:", h.BindingFiles, h.Declarations)
	frontEnd := okStyle().Render("C#")
	if !h.FrontEnd {
		frontEnd = warnStyle().Render("none")
	}
	fmt.Fprintf(&sb, "  %-10s %s\n", "Front-end:", frontEnd)
	fmt.Fprintf(&sb, "  %-10s %s\n", "Uptime:", h.Uptime)
	return sb.String()
}

func formatReindex(r *socket.ReindexResult) string {
	return fmt.Sprintf("%s │ %s, %s (%d cached) │ %d failed │ %d removed │ %dms\n",
		titleStyle().Render("reindexed"),
		count(r.FeatureFiles, "feature file"), count(r.BindingFiles, "binding file"),
		r.Cached, r.Failed, r.Removed, r.ElapsedMs)
}

//	12 steps
//	  Features/login.feature:3  Given I am logged in  (1 binding)
func formatSteps(r *socket.StepsResult, root string) string {
	var sb strings.Builder
	sb.WriteString(titleStyle().Render(count(r.Count, "step")) + "\n")
	for _, st := range r.Steps {
		bound := mutedStyle().Render("(" + count(st.Bindings, "binding") + ")")
		if st.Bindings == 0 {
			bound = warnStyle().Render("(unbound)")
		}
		fmt.Fprintf(&sb, "  %s:%d  %s %s  %s\n",
			pathStyle().Render(relPath(root, st.Path)), st.Line,
			keyStyle().Render(st.Keyword), st.Text, bound)
	}
	return sb.String()
}

//	3 bindings
//	  Steps/LoginSteps.cs:12  [Given] I am logged in  LoginSteps.GivenLoggedIn  (4 steps)
func formatBindings(r *socket.BindingsResult, root string) string {
	var sb strings.Builder
	sb.WriteString(titleStyle().Render(count(r.Count, "binding")) + "\n")
	for _, b := range r.Bindings {
		pattern := b.Pattern
		if b.Kind == "literal" {
			pattern = fmt.Sprintf("%q", b.Pattern)
		}
		fmt.Fprintf(&sb, "  %s:%d  %s %s  %s  %s\n",
			pathStyle().Render(relPath(root, b.Path)), b.Line,
			keyStyle().Render("["+b.Attribute+"]"), pattern,
			mutedStyle().Render(b.Class+"."+b.Method),
			mutedStyle().Render("("+count(b.Steps, "step")+")"))
	}
	return sb.String()
}

func formatCompletion(r *socket.CompletionResult) string {
	var sb strings.Builder
	sb.WriteString(titleStyle().Render(count(len(r.Items), "item")) + "\n")
	for _, it := range r.Items {
		sb.WriteString("  " + it.Label + "\n")
	}
	return sb.String()
}

func formatLocations(r *socket.LocationsResult, root string) string {
	var sb strings.Builder
	sb.WriteString(titleStyle().Render(count(len(r.Locations), "location")) + "\n")
	for _, loc := range r.Locations {
		path, err := workspace.Canonicalize(string(loc.URI))
		if err != nil {
			path = string(loc.URI)
		}
		fmt.Fprintf(&sb, "  %s:%d:%d\n", pathStyle().Render(relPath(root, path)),
			loc.Range.Start.Line+1, loc.Range.Start.Character+1)
	}
	return sb.String()
}

func formatCheck(path string, errs []feature.ParseError) string {
	if len(errs) == 0 {
		return fmt.Sprintf("  %s %s\n", okStyle().Render("✓"), path)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "  %s %s\n", errorStyle().Render("✗"), path)
	for _, e := range errs {
		fmt.Fprintf(&sb, "      %s %s\n",
			mutedStyle().Render(fmt.Sprintf("%d:%d", e.Range.Start.Line+1, e.Range.Start.Character+1)),
			e.Message)
	}
	return sb.String()
}

func formatCheckSummary(files, failed int) string {
	if failed == 0 {
		return okStyle().Render(fmt.Sprintf("%s ok", count(files, "feature file")))
	}
	return errorStyle().Render(fmt.Sprintf("%d of %s failed", failed, count(files, "feature file")))
}

func formatDialect(d *dialect.Dialect) string {
	var sb strings.Builder
	sb.WriteString(titleStyle().Render(d.Code()) + "\n")
	for c := dialect.Feature; c <= dialect.But; c++ {
		fmt.Fprintf(&sb, "  %s %s\n",
			keyStyle().Render(fmt.Sprintf("%-16s", c.String())),
			strings.Join(d.Keywords(c), ", "))
	}
	return sb.String()
}
