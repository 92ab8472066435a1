package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/mediagrab/internal/acquire"
	"github.com/forPelevin/mediagrab/internal/config"
	"github.com/forPelevin/mediagrab/internal/logging"
	"github.com/forPelevin/mediagrab/internal/pipeline"
	"github.com/forPelevin/mediagrab/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/mediagrab/internal/progress"
)

func run(cmd *cobra.Command, args []string) error {
	if err := loadConfig(cmd); err != nil {
		return err
	}
	log, err := newLogger(cmd)
	if err != nil {
		return err
	}

	f := cmd.Flags()
	outDir, _ := f.GetString("out")
	urlsFile, _ := f.GetString("urls-file")
	modeName, _ := f.GetString("mode")
	keepOriginal, _ := f.GetBool("keep-original")
	extractAudio, _ := f.GetBool("extract-audio")
	thumbnails, _ := f.GetBool("thumbnails")
	link, _ := f.GetBool("link")
	durationSec, _ := f.GetInt("duration")
	clearDir, _ := f.GetBool("clear-dir")
	timeoutSec, _ := f.GetInt("timeout")
	retries, _ := f.GetInt("retries")
	maxImage, _ := f.GetInt("max-image-size")

	mode, err := acquire.ParseMode(modeName)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	bar := progress.New(stderr, logging.IsTerminal(stderr), func(program, line string) {
		log.Debug(line, "program", program)
	})
	defer bar.Done()

	cfg := pipeline.Config{
		Locators:     args,
		URLsFile:     urlsFile,
		OutDir:       absOut,
		ClearDir:     clearDir,
		Mode:         mode,
		KeepOriginal: keepOriginal,
		ExtractAudio: extractAudio,
		Thumbnails:   thumbnails,
		LinkNames:    link,
		MaxDuration:  time.Duration(durationSec) * time.Second,

		FFmpegPath:    flagString(cmd, "ffmpeg"),
		FFprobePath:   flagString(cmd, "ffprobe"),
		YTDLPPath:     flagString(cmd, "yt-dlp"),
		GalleryDLPath: flagString(cmd, "gallery-dl"),
		Auth: ytdlp.Auth{
			Username:           flagString(cmd, "username"),
			Password:           flagString(cmd, "password"),
			CookiesFile:        flagString(cmd, "cookies"),
			CookiesFromBrowser: flagString(cmd, "cookies-from-browser"),
		},

		FetchTimeout:      time.Duration(timeoutSec) * time.Second,
		FetchRetries:      retries,
		MaxImageDimension: maxImage,

		Logger: log,
		Sink:   bar.Observe,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := pipeline.Run(ctx, cfg)
	bar.Done()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(sum))
	if sum.Failed > 0 {
		return fmt.Errorf("%d of %d item(s) failed", sum.Failed, len(sum.Items))
	}
	return nil
}

// loadConfig fills flags the user did not pass from MEDIAGRAB_* variables
// and the TOML config file.
func loadConfig(cmd *cobra.Command) error {
	path := flagString(cmd, "config")
	if path == "" {
		path = os.Getenv(config.EnvName("config"))
	}
	file, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := config.Apply(cmd.Flags(), file.Values(), os.Getenv); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level, err := logging.ParseLevel(flagString(cmd, "log-level"))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	format, err := logging.ParseFormat(flagString(cmd, "log-format"))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return logging.New(cmd.ErrOrStderr(), level, format), nil
}

func flagString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
