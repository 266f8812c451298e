package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/stackbump/pkg/apply"
	"github.com/matzehuels/stackbump/pkg/version"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleNumber  = lipgloss.NewStyle().Foreground(colorCyan)
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	StyleError   = lipgloss.NewStyle().Foreground(colorRed)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleDirect     = lipgloss.NewStyle().Foreground(colorCyan)
	stylePropagated = lipgloss.NewStyle().Foreground(colorGray)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func printSuccess(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	fmt.Fprintln(stdout, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

func printNewline() {
	fmt.Fprintln(stdout)
}

// =============================================================================
// Resolution Output
// =============================================================================

// printResolution renders one line per update, aligned on the package name,
// followed by the rewritten specifiers and any cycles.
func printResolution(res *version.VersionResolution) {
	if len(res.Updates) == 0 {
		printInfo("No packages to update")
		return
	}

	width := 0
	for _, u := range res.Updates {
		width = max(width, lipgloss.Width(u.Name))
	}
	nameStyle := lipgloss.NewStyle().Width(width)

	for _, u := range res.Updates {
		reason := styleDirect.Render(u.Reason.String())
		if u.Propagated() {
			reason = stylePropagated.Render(u.Reason.String())
		}
		transition := StyleDim.Render(u.CurrentVersion.String()+" "+iconArrow+" ") + StyleNumber.Render(u.Target())
		if !u.VersionChanged() {
			transition = StyleDim.Render(u.CurrentVersion.String() + " (unchanged)")
		}
		fmt.Fprintf(stdout, "  %s  %s  %s\n", StyleValue.Render(nameStyle.Render(u.Name)), transition, reason)
		for _, du := range u.DependencyUpdates {
			printDetail("%s %s: %s %s %s", strings.Repeat(" ", width), du.Name, du.OldSpec, iconArrow, du.NewSpec)
		}
	}

	direct, propagated := res.Counts()
	printNewline()
	printDetail("%d direct · %d propagated", direct, propagated)
	printCycles(res)
}

func printCycles(res *version.VersionResolution) {
	for _, c := range res.CircularDependencies {
		printWarning("circular dependency: %s", c.DisplayCycle())
	}
}

// printApplyResult summarises an apply run.
func printApplyResult(r *apply.Result) {
	counts := r.Counts()
	switch {
	case r.RolledBack:
		printError("Apply failed, %d file(s) restored", counts[apply.StatusRolledBack])
	case r.DryRun:
		printInfo("Dry run: %d file(s) would change", len(r.ModifiedFiles))
	default:
		printSuccess("Updated %d file(s)", len(r.ModifiedFiles))
	}
	for _, path := range r.ModifiedFiles {
		printFile(path)
	}
	for _, p := range r.Packages {
		if p.Status == apply.StatusFailed {
			printDetail("%s: %s", p.Name, StyleError.Render(p.Error))
		}
	}
	for _, b := range r.Backups {
		printDetail("backup kept: %s", b)
	}
}
