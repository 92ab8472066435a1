package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/forPelevin/mediagrab/internal/acquire"
	"github.com/forPelevin/mediagrab/internal/fsutil"
	"github.com/forPelevin/mediagrab/internal/naming"
	"github.com/forPelevin/mediagrab/internal/ports"
	"github.com/forPelevin/mediagrab/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/mediagrab/internal/ports/adapters/gallerydl"
	"github.com/forPelevin/mediagrab/internal/ports/adapters/imaging"
	"github.com/forPelevin/mediagrab/internal/ports/adapters/localfile"
	"github.com/forPelevin/mediagrab/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/mediagrab/internal/procrun"
)

type Config struct {
	Locators []string
	// URLsFile lists more locators, one or more per line separated by ';'.
	URLsFile string
	OutDir   string
	ClearDir bool

	Mode         acquire.Mode
	KeepOriginal bool
	ExtractAudio bool
	Thumbnails   bool
	LinkNames    bool
	MaxDuration  time.Duration

	FFmpegPath    string
	FFprobePath   string
	YTDLPPath     string
	GalleryDLPath string
	Auth          ytdlp.Auth

	FetchTimeout      time.Duration
	FetchRetries      int
	TimeoutBackoff    time.Duration
	MaxImageDimension int

	Logger *slog.Logger
	// Sink receives live tool output lines, e.g. for a progress bar.
	Sink func(program, line string)
}

func (c Config) Validate() error {
	if len(c.Locators) == 0 && c.URLsFile == "" {
		return errors.New("no locators given")
	}
	if c.URLsFile != "" {
		if _, err := os.Stat(c.URLsFile); err != nil {
			return fmt.Errorf("stat urls file: %w", err)
		}
	}
	if c.OutDir == "" {
		return errors.New("output directory is empty")
	}
	if c.Mode != "" {
		if _, err := acquire.ParseMode(string(c.Mode)); err != nil {
			return err
		}
	}
	if c.MaxDuration < 0 {
		return fmt.Errorf("duration must be >= 0")
	}
	if c.FetchRetries < 0 {
		return fmt.Errorf("retries must be >= 0")
	}
	if c.FetchTimeout < 0 || c.TimeoutBackoff < 0 {
		return fmt.Errorf("timeouts must be >= 0")
	}
	return nil
}

func Run(ctx context.Context, cfg Config) (Summary, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	runID := uuid.NewString()
	log = log.With("run_id", runID)

	backoff := cfg.TimeoutBackoff
	if backoff == 0 {
		backoff = procrun.DefaultTimeoutBackoff
	}
	runner := procrun.New(procrun.Options{
		Logger:         log.With("component", "procrun"),
		Sink:           cfg.Sink,
		TimeoutBackoff: backoff,
	})

	// adapters
	media := ffmpeg.New(runner, cfg.FFmpegPath, cfg.FFprobePath, log.With("component", "ffmpeg"))
	remote := ytdlp.New(runner, ytdlp.Options{
		Binary:  cfg.YTDLPPath,
		Auth:    cfg.Auth,
		Timeout: cfg.FetchTimeout,
		Retries: cfg.FetchRetries,
	})
	local := localfile.New()
	gallery := gallerydl.New(runner, cfg.GalleryDLPath, cfg.Auth.CookiesFromBrowser)
	deps := acquire.Deps{
		Fetcher:  localfile.Router{Local: local, Remote: remote},
		Pictures: localfile.PictureRouter{Local: local, Remote: gallery},
		Probe:    media,
		Media:    media,
		Images:   imaging.New(cfg.MaxImageDimension),
		Log:      log,
	}
	sum, err := execute(ctx, cfg, deps)
	sum.RunID = runID
	return sum, err
}

// execute runs the batch over already built adapters.
func execute(ctx context.Context, cfg Config, deps acquire.Deps) (Summary, error) {
	log := deps.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
		deps.Log = log
	}

	locators := append([]string(nil), cfg.Locators...)
	if cfg.URLsFile != "" {
		more, err := LoadLocators(cfg.URLsFile)
		if err != nil {
			return Summary{}, err
		}
		locators = append(locators, more...)
	}
	items, dups := Dedup(locators)
	if dups > 0 {
		log.Info("dropped duplicate locators", "count", dups)
	}
	if len(items) == 0 {
		return Summary{}, errors.New("no locators to process")
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return Summary{}, err
	}
	if cfg.ClearDir {
		log.Info("clearing output directory", "dir", cfg.OutDir)
		if err := fsutil.RemoveContents(cfg.OutDir); err != nil {
			return Summary{}, fmt.Errorf("clear output dir: %w", err)
		}
	}

	m := acquire.New(deps, cfg.OutDir, naming.NewContext(), acquire.Options{
		Mode:         cfg.Mode,
		KeepOriginal: cfg.KeepOriginal,
		ExtractAudio: cfg.ExtractAudio,
		Thumbnails:   cfg.Thumbnails,
		LinkNames:    cfg.LinkNames,
		MaxDuration:  cfg.MaxDuration,
	})
	log.Info("starting batch", "items", len(items), "dir", cfg.OutDir, "mode", string(m.Mode()))

	sum := Drive(ctx, m, items, m.Temp(), log)
	sum.Duplicates = dups
	return sum, nil
}

// ensure adapters implement ports
var (
	_ ports.CommandRunner   = (*procrun.Runner)(nil)
	_ ports.Fetcher         = (*ytdlp.Adapter)(nil)
	_ ports.Fetcher         = (*localfile.Adapter)(nil)
	_ ports.Fetcher         = localfile.Router{}
	_ ports.PictureFetcher  = (*gallerydl.Adapter)(nil)
	_ ports.PictureFetcher  = (*localfile.Adapter)(nil)
	_ ports.PictureFetcher  = localfile.PictureRouter{}
	_ ports.Prober          = (*ffmpeg.Adapter)(nil)
	_ ports.Transcoder      = (*ffmpeg.Adapter)(nil)
	_ ports.ImageNormalizer = (*imaging.Normalizer)(nil)
)

var _ Processor = (*acquire.Machine)(nil)
