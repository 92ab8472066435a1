// Package progress turns fetch tool output into a single-line progress bar.
package progress

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
)

const (
	barWidth   = 40
	labelWidth = 36
)

var rePct = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)%`)

// Reporter is safe to use as a procrun sink. Lines that carry no progress
// go to the fallback sink unchanged.
type Reporter struct {
	mu       sync.Mutex
	w        io.Writer
	bar      progress.Model
	enabled  bool
	active   bool
	fallback func(program, line string)
}

// New returns a reporter drawing on w. When enabled is false every line is
// passed to fallback, which may be nil.
func New(w io.Writer, enabled bool, fallback func(program, line string)) *Reporter {
	return &Reporter{
		w:        w,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
		enabled:  enabled,
		fallback: fallback,
	}
}

func (r *Reporter) Observe(program, line string) {
	pct, label, ok := Parse(line)
	if !ok || !r.enabled {
		if r.fallback != nil {
			r.fallback(program, line)
		}
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "\r\033[2K%-*s %s", labelWidth, truncate(label, labelWidth), r.bar.ViewAs(pct/100))
	r.active = true
	if pct >= 100 {
		r.finish()
	}
}

// Done ends a bar that is still on screen.
func (r *Reporter) Done() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finish()
}

func (r *Reporter) finish() {
	if r.active {
		fmt.Fprintln(r.w)
		r.active = false
	}
}

// Parse extracts the percentage and the text before it from a yt-dlp
// "[download]" or "[downloading]" line.
func Parse(line string) (pct float64, label string, ok bool) {
	l := strings.TrimSpace(line)
	var rest string
	switch {
	case strings.HasPrefix(l, "[downloading]"):
		rest = strings.TrimPrefix(l, "[downloading]")
	case strings.HasPrefix(l, "[download]"):
		rest = strings.TrimPrefix(l, "[download]")
	default:
		return 0, "", false
	}
	loc := rePct.FindStringSubmatchIndex(rest)
	if loc == nil {
		return 0, "", false
	}
	v, err := strconv.ParseFloat(rest[loc[2]:loc[3]], 64)
	if err != nil {
		return 0, "", false
	}
	v = min(max(v, 0), 100)
	return v, strings.TrimSpace(rest[:loc[0]]), true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
