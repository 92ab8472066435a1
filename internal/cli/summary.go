package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/forPelevin/mediagrab/internal/pipeline"
	"github.com/forPelevin/mediagrab/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func renderSummary(s pipeline.Summary) string {
	lines := []string{titleStyle.Render(s.String())}

	meta := []string{humanize.Bytes(uint64(s.Bytes)), s.Elapsed.Round(time.Second).String()}
	if s.Duplicates > 0 {
		meta = append(meta, fmt.Sprintf("%d duplicate(s) skipped", s.Duplicates))
	}
	lines = append(lines, mutedStyle.Render(strings.Join(meta, " · ")), "")

	for _, r := range s.Items {
		lines = append(lines, itemLine(r))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func itemLine(r types.ItemResult) string {
	name := r.Locator
	if r.Title != "" {
		name = r.Title
	}
	if !r.OK() {
		msg := "failed"
		if r.Err != nil {
			msg = firstLine(r.Err.Error())
		}
		return errorStyle.Render("✗ ") + name + "  " + mutedStyle.Render(msg)
	}
	tiers := r.Acquired.String()
	if !r.Resumed.Empty() {
		tiers += " (already had " + r.Resumed.String() + ")"
	}
	return okStyle.Render("✓ ") + name + "  " + mutedStyle.Render(tiers)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
