package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forPelevin/mediagrab/internal/acquire"
	"github.com/forPelevin/mediagrab/internal/ports/adapters/imaging"
	"github.com/forPelevin/mediagrab/internal/ports/adapters/ytdlp"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	root := &cobra.Command{
		Use:          "mediagrab [locator...]",
		Short:        "Download and normalize media from URLs or local files",
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE:         run,
	}

	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	// Visible flags
	f := root.Flags()
	f.StringP("out", "o", ".", "Output directory")
	f.String("urls-file", "", "File with locators, one or more per line separated by ';'")
	f.String("mode", string(acquire.ModeAll), "Acquisition mode: all, combined, video, audio, pic, split")
	f.Bool("keep-original", false, "Keep the source resolution (O_ prefix) instead of fitting a size bucket")
	f.Bool("extract-audio", false, "Also save the audio of each original as an A_ file")
	f.Bool("thumbnails", false, "Save a webp thumbnail next to each video")
	f.Bool("link", false, "Name outputs after the URL instead of the title")
	f.Int("duration", 0, "Keep only the first N seconds of each download (0 keeps all)")
	f.Bool("clear-dir", false, "Empty the output directory before starting")
	f.String("username", "", "Account name passed to yt-dlp")
	f.String("password", "", "Account password passed to yt-dlp")
	f.String("cookies", "", "Cookies file passed to yt-dlp")
	f.String("cookies-from-browser", "firefox", "Browser to read cookies from ('none' disables)")

	pf := root.PersistentFlags()
	pf.String("config", "", "TOML config file (default ./mediagrab.toml when present)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "auto", "Log format: auto, text, json")

	// Hidden tuning flags (internal)
	pf.String("ffmpeg", "ffmpeg", "ffmpeg binary")
	pf.String("ffprobe", "ffprobe", "ffprobe binary")
	pf.String("yt-dlp", "yt-dlp", "yt-dlp binary")
	pf.String("gallery-dl", "gallery-dl", "gallery-dl binary")
	f.Int("timeout", int(ytdlp.DefaultTimeout.Seconds()), "Seconds before a download attempt is abandoned")
	f.Int("retries", ytdlp.DefaultRetries, "Download retries after a failure or timeout")
	f.Int("max-image-size", imaging.DefaultMaxDimension, "Longest side of saved pictures in pixels")
	for _, name := range []string{"ffmpeg", "ffprobe", "yt-dlp", "gallery-dl"} {
		_ = pf.MarkHidden(name)
	}
	for _, name := range []string{"timeout", "retries", "max-image-size"} {
		_ = f.MarkHidden(name)
	}

	root.AddCommand(newDoctor())
	return root
}
