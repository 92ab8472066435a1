package cli

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/mediagrab/internal/pipeline"
	"github.com/forPelevin/mediagrab/internal/types"
)

func TestRenderSummary(t *testing.T) {
	t.Parallel()

	sum := pipeline.Summary{
		Succeeded:  1,
		Failed:     1,
		Duplicates: 2,
		Bytes:      3 << 20,
		Elapsed:    4 * time.Second,
		Items: []types.ItemResult{
			{
				Locator:  "https://example.com/a",
				Title:    "Demo",
				Acquired: types.NewTierSet(types.TierOriginal, types.TierAudio),
				Resumed:  types.NewTierSet(types.TierAudio),
			},
			{Locator: "https://example.com/b", Err: errors.New("all acquisition tiers failed\nmore detail")},
		},
	}
	out := renderSummary(sum)
	for _, want := range []string{
		"1 succeeded, 1 failed",
		"2 duplicate(s) skipped",
		"3.1 MB",
		"Demo",
		"original,audio (already had audio)",
		"https://example.com/b",
		"all acquisition tiers failed",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "more detail") {
		t.Fatalf("only the first error line belongs in the summary:\n%s", out)
	}
}

func TestCheckTools(t *testing.T) {
	t.Parallel()

	lookPath := func(bin string) (string, error) {
		if bin == "gallery-dl" || bin == "/opt/ff/ffprobe" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + bin, nil
	}
	binary := func(tl tool) string {
		if tl.flag == "ffprobe" {
			return "/opt/ff/ffprobe"
		}
		return ""
	}

	statuses := checkTools(binary, lookPath)
	if len(statuses) != len(tools) {
		t.Fatalf("statuses = %d", len(statuses))
	}
	byName := map[string]toolStatus{}
	for _, s := range statuses {
		byName[s.flag] = s
	}
	if byName["yt-dlp"].path != "/usr/bin/yt-dlp" || byName["yt-dlp"].err != nil {
		t.Fatalf("yt-dlp = %+v", byName["yt-dlp"])
	}
	if byName["ffprobe"].err == nil {
		t.Fatalf("configured ffprobe path should be looked up as given")
	}

	out := renderDoctor(statuses)
	if !strings.Contains(out, "picture pages disabled") {
		t.Fatalf("optional tool message missing:\n%s", out)
	}
}

func TestRootFlags(t *testing.T) {
	t.Parallel()

	root := newRoot()
	for _, name := range []string{"out", "mode", "keep-original", "extract-audio", "thumbnails", "link", "duration", "clear-dir", "cookies-from-browser", "timeout", "retries"} {
		if root.Flags().Lookup(name) == nil {
			t.Fatalf("missing flag --%s", name)
		}
	}
	if f := root.Flags().Lookup("retries"); !f.Hidden {
		t.Fatalf("--retries should be hidden")
	}
	if got := root.Flags().Lookup("cookies-from-browser").DefValue; got != "firefox" {
		t.Fatalf("cookies-from-browser default = %q", got)
	}
	if _, _, err := root.Find([]string{"doctor"}); err != nil {
		t.Fatalf("doctor subcommand: %v", err)
	}
}
