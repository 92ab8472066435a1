// Package config layers an optional TOML file and MEDIAGRAB_* environment
// variables under the command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
)

const (
	DefaultFile = "mediagrab.toml"
	EnvPrefix   = "MEDIAGRAB_"
)

// File mirrors the flags. Unset keys leave the flag default alone.
type File struct {
	Out          string `toml:"out"`
	URLsFile     string `toml:"urls_file"`
	Mode         string `toml:"mode"`
	KeepOriginal *bool  `toml:"keep_original"`
	ExtractAudio *bool  `toml:"extract_audio"`
	Thumbnails   *bool  `toml:"thumbnails"`
	Link         *bool  `toml:"link"`
	ClearDir     *bool  `toml:"clear_dir"`
	Duration     *int   `toml:"duration"`
	LogLevel     string `toml:"log_level"`
	LogFormat    string `toml:"log_format"`

	Auth  Auth  `toml:"auth"`
	Tools Tools `toml:"tools"`
	Fetch Fetch `toml:"fetch"`
}

type Auth struct {
	Username           string `toml:"username"`
	Password           string `toml:"password"`
	Cookies            string `toml:"cookies"`
	CookiesFromBrowser string `toml:"cookies_from_browser"`
}

type Tools struct {
	FFmpeg    string `toml:"ffmpeg"`
	FFprobe   string `toml:"ffprobe"`
	YTDLP     string `toml:"yt_dlp"`
	GalleryDL string `toml:"gallery_dl"`
}

type Fetch struct {
	Timeout      *int `toml:"timeout"`
	Retries      *int `toml:"retries"`
	MaxImageSize *int `toml:"max_image_size"`
}

// Load reads path. An empty path falls back to DefaultFile in the working
// directory, which may be absent.
func Load(path string) (File, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	var f File
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("config %s: %w", path, err)
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		return File{}, fmt.Errorf("config %s: unknown keys: %s", path, strings.Join(names, ", "))
	}
	return f, nil
}

// Values maps flag names to the values set in the file.
func (f File) Values() map[string]string {
	v := map[string]string{}
	str := func(name, s string) {
		if s != "" {
			v[name] = s
		}
	}
	boolean := func(name string, b *bool) {
		if b != nil {
			v[name] = strconv.FormatBool(*b)
		}
	}
	integer := func(name string, n *int) {
		if n != nil {
			v[name] = strconv.Itoa(*n)
		}
	}

	str("out", f.Out)
	str("urls-file", f.URLsFile)
	str("mode", f.Mode)
	boolean("keep-original", f.KeepOriginal)
	boolean("extract-audio", f.ExtractAudio)
	boolean("thumbnails", f.Thumbnails)
	boolean("link", f.Link)
	boolean("clear-dir", f.ClearDir)
	integer("duration", f.Duration)
	str("log-level", f.LogLevel)
	str("log-format", f.LogFormat)

	str("username", f.Auth.Username)
	str("password", f.Auth.Password)
	str("cookies", f.Auth.Cookies)
	str("cookies-from-browser", f.Auth.CookiesFromBrowser)

	str("ffmpeg", f.Tools.FFmpeg)
	str("ffprobe", f.Tools.FFprobe)
	str("yt-dlp", f.Tools.YTDLP)
	str("gallery-dl", f.Tools.GalleryDL)

	integer("timeout", f.Fetch.Timeout)
	integer("retries", f.Fetch.Retries)
	integer("max-image-size", f.Fetch.MaxImageSize)
	return v
}

// EnvName is the environment variable consulted for a flag.
func EnvName(flag string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// Apply fills every flag the user did not pass, from the environment first
// and then from file values. File values for flags fs does not define are
// ignored, so subcommands can share one file.
func Apply(fs *pflag.FlagSet, file map[string]string, getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	var errs []error
	fs.VisitAll(func(fl *pflag.Flag) {
		if fl.Changed {
			return
		}
		val, ok := getenv(EnvName(fl.Name)), true
		src := EnvName(fl.Name)
		if val == "" {
			val, ok = file[fl.Name]
			src = "config file"
		}
		if !ok || val == "" {
			return
		}
		if err := fs.Set(fl.Name, val); err != nil {
			errs = append(errs, fmt.Errorf("%s: --%s: %w", src, fl.Name, err))
		}
	})
	return errors.Join(errs...)
}
