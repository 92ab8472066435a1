package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/mediagrab/internal/ports"
	"github.com/forPelevin/mediagrab/internal/procrun"
	"github.com/forPelevin/mediagrab/internal/types"
)

var ErrNoFormats = errors.New("no matching formats")

const (
	DefaultTimeout = 300 * time.Second
	DefaultRetries = 1

	titleTimeout = 60 * time.Second
)

var (
	mediaExts = map[types.Modality][]string{
		types.ModalityCombined: {".mp4", ".mkv", ".webm"},
		types.ModalityVideo:    {".mp4", ".mkv", ".webm"},
		types.ModalityAudio:    {".m4a", ".opus", ".webm", ".mp3", ".aac"},
	}
	thumbExts = []string{".webp", ".jpg", ".jpeg", ".png"}
)

type Auth struct {
	Username           string
	Password           string
	CookiesFile        string
	CookiesFromBrowser string
}

func (a Auth) Args() []string {
	switch {
	case a.Username != "":
		return []string{"--username", a.Username, "--password", a.Password}
	case a.CookiesFile != "":
		return []string{"--cookies", a.CookiesFile}
	case a.CookiesFromBrowser != "" && a.CookiesFromBrowser != "none":
		return []string{"--cookies-from-browser", a.CookiesFromBrowser}
	}
	return nil
}

type Options struct {
	Binary  string
	Auth    Auth
	Timeout time.Duration
	Retries int
}

type Adapter struct {
	run  ports.CommandRunner
	opts Options
}

func New(run ports.CommandRunner, opts Options) *Adapter {
	if opts.Binary == "" {
		opts.Binary = "yt-dlp"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Adapter{run: run, opts: opts}
}

func (a *Adapter) Title(ctx context.Context, locator string) (string, error) {
	args := append([]string{"--get-title", "--no-warnings", "--no-playlist"}, a.opts.Auth.Args()...)
	res := a.run.Run(ctx, procrun.CommandSpec{
		Program: a.opts.Binary,
		Args:    append(args, locator),
		Timeout: titleTimeout,
		Quiet:   true,
	})
	if err := res.Err(); err != nil {
		return "", fmt.Errorf("yt-dlp title: %w", err)
	}
	for _, line := range strings.Split(res.Output, "\n") {
		if line = strings.TrimSpace(line); line != "" && !strings.HasPrefix(line, "WARNING:") {
			return line, nil
		}
	}
	return "", errors.New("yt-dlp title: empty output")
}

func (a *Adapter) Fetch(ctx context.Context, req ports.FetchRequest) (ports.FetchResult, error) {
	res := a.run.Run(ctx, procrun.CommandSpec{
		Program: a.opts.Binary,
		Args:    BuildArgs(req, a.opts.Auth),
		Timeout: a.opts.Timeout,
		Retries: a.opts.Retries,
	})
	if err := res.Err(); err != nil {
		if NoFormats(res.Output) {
			err = fmt.Errorf("%w: %w", ErrNoFormats, err)
		}
		return ports.FetchResult{}, fmt.Errorf("yt-dlp %s: %w", req.Modality, err)
	}

	path := FindWithExt(req.Base, mediaExts[req.Modality])
	if path == "" {
		return ports.FetchResult{}, fmt.Errorf("yt-dlp %s: no output file for %s", req.Modality, req.Base)
	}
	out := ports.FetchResult{Path: path, Title: ExtractTitle(res.Output)}
	if req.Thumbnail {
		out.Thumbnail = FindWithExt(req.Base, thumbExts)
	}
	return out, nil
}

func BuildArgs(req ports.FetchRequest, auth Auth) []string {
	args := []string{"--no-playlist", "--newline"}
	switch req.Modality {
	case types.ModalityVideo:
		args = append(args, "-f", "bestvideo[ext=mp4]/bestvideo")
	case types.ModalityAudio:
		args = append(args, "-f", "bestaudio/best", "-x", "--audio-format", "m4a")
	default:
		args = append(args, "-f", "bestvideo+bestaudio/best", "--merge-output-format", "mp4")
	}
	args = append(args,
		"--progress-template", "[downloading] %(info.title)s %(progress._percent_str)s",
		"-o", req.Base+".%(ext)s",
	)
	if req.Thumbnail {
		args = append(args, "--write-thumbnail", "--convert-thumbnails", "webp")
	}
	if req.MaxDuration > 0 {
		sec := strconv.Itoa(int(req.MaxDuration.Round(time.Second) / time.Second))
		args = append(args, "--download-sections", "*0-"+sec)
	}
	args = append(args, auth.Args()...)
	return append(args, req.Locator)
}

// FindWithExt returns the first base+ext that exists; the tool decides the
// final extension, so callers probe the known candidates.
func FindWithExt(base string, exts []string) string {
	for _, ext := range exts {
		if st, err := os.Stat(base + ext); err == nil && !st.IsDir() && st.Size() > 0 {
			return base + ext
		}
	}
	return ""
}

func NoFormats(output string) bool {
	return strings.Contains(output, "No video formats found") ||
		strings.Contains(output, "Requested format is not available")
}

var (
	reToolTitle        = regexp.MustCompile(`^\[(?:youtube|info)\]\s+[^:]+:\s+(.+?)(?:\s+\[|$)`)
	reDownloadingTitle = regexp.MustCompile(`^\[downloading\]\s+(.+?)\s+(?:\d+\.\d+[KMG]?iB|[0-9.]+%)`)
)

// ExtractTitle recovers the title from the tool's log lines when --get-title
// was not available. The first line that names something wins.
func ExtractTitle(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "Extracting URL") {
			continue
		}
		if m := reToolTitle.FindStringSubmatch(line); m != nil {
			t := strings.TrimSpace(m[1])
			if !strings.HasPrefix(t, "Downloading") && !strings.HasPrefix(t, "Extracting") && !strings.HasPrefix(t, "Writing") {
				return t
			}
			continue
		}
		if m := reDownloadingTitle.FindStringSubmatch(line); m != nil {
			if t := strings.TrimSpace(m[1]); t != "NA" {
				return t
			}
		}
	}
	return ""
}
