package ports

import (
	"context"
	"errors"
	"time"

	"github.com/forPelevin/mediagrab/internal/planner"
	"github.com/forPelevin/mediagrab/internal/procrun"
	"github.com/forPelevin/mediagrab/internal/types"
)

// ErrUnsupportedImage is returned by an ImageNormalizer that cannot decode its input.
var ErrUnsupportedImage = errors.New("unsupported image format")

type CommandRunner interface {
	Run(ctx context.Context, spec procrun.CommandSpec) procrun.CommandResult
}

type FetchRequest struct {
	Locator  string
	Modality types.Modality
	// Base is the output path without extension; the tool picks the extension.
	Base        string
	Thumbnail   bool
	MaxDuration time.Duration
}

type FetchResult struct {
	Path      string
	Thumbnail string
	// Title is parsed from the tool output when available.
	Title string
}

type Fetcher interface {
	Title(ctx context.Context, locator string) (string, error)
	Fetch(ctx context.Context, req FetchRequest) (FetchResult, error)
}

type PictureFetcher interface {
	// FetchImages downloads into dir and returns the image files, sorted.
	FetchImages(ctx context.Context, locator, dir string) ([]string, error)
}

type Prober interface {
	Inspect(ctx context.Context, path string) types.MediaInfo
	Duration(ctx context.Context, path string) types.Probed[float64]
}

type Transcoder interface {
	Transcode(ctx context.Context, in, out string, d planner.Decision, o types.EncodeOptions) error
	Remux(ctx context.Context, in, out string, o types.EncodeOptions) error
	ExtractAudio(ctx context.Context, in, out string, o types.EncodeOptions) error
	ConvertImage(ctx context.Context, in, out string) error
}

type ImageNormalizer interface {
	Normalize(src, dst string) error
	Ext() string
}
