package localfile

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/forPelevin/mediagrab/internal/fsutil"
	"github.com/forPelevin/mediagrab/internal/ports"
)

// Adapter "fetches" files that already exist on disk by copying them into
// the temporary slot, so local inputs go through the same tiers as URLs.
type Adapter struct{}

func New() *Adapter { return &Adapter{} }

// Handles reports whether locator names an existing regular file.
func Handles(locator string) bool {
	if strings.Contains(locator, "://") {
		return false
	}
	return fsutil.Exists(locator)
}

func (a *Adapter) Title(_ context.Context, locator string) (string, error) {
	base := filepath.Base(locator)
	return strings.TrimSuffix(base, filepath.Ext(base)), nil
}

func (a *Adapter) Fetch(_ context.Context, req ports.FetchRequest) (ports.FetchResult, error) {
	ext := strings.ToLower(filepath.Ext(req.Locator))
	if ext == "" {
		ext = ".bin"
	}
	dst := req.Base + ext
	if err := fsutil.Copy(req.Locator, dst); err != nil {
		return ports.FetchResult{}, fmt.Errorf("local %s: %w", req.Modality, err)
	}
	title, _ := a.Title(context.Background(), req.Locator)
	return ports.FetchResult{Path: dst, Title: title}, nil
}

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".bmp": true,
}

// IsImage reports whether locator is a local still image.
func IsImage(locator string) bool {
	return imageExts[strings.ToLower(filepath.Ext(locator))] && Handles(locator)
}

// FetchImages copies a local image into dir, so local pictures reach the
// picture tier without a gallery download.
func (a *Adapter) FetchImages(_ context.Context, locator, dir string) ([]string, error) {
	if !IsImage(locator) {
		return nil, fmt.Errorf("local %s: not an image", locator)
	}
	dst := filepath.Join(dir, filepath.Base(locator))
	if err := fsutil.Copy(locator, dst); err != nil {
		return nil, fmt.Errorf("local picture: %w", err)
	}
	return []string{dst}, nil
}

// Router sends local paths to the local adapter and everything else to the
// remote fetcher.
type Router struct {
	Local  ports.Fetcher
	Remote ports.Fetcher
}

func (r Router) pick(locator string) ports.Fetcher {
	if Handles(locator) {
		return r.Local
	}
	return r.Remote
}

func (r Router) Title(ctx context.Context, locator string) (string, error) {
	return r.pick(locator).Title(ctx, locator)
}

func (r Router) Fetch(ctx context.Context, req ports.FetchRequest) (ports.FetchResult, error) {
	return r.pick(req.Locator).Fetch(ctx, req)
}

// PictureRouter sends local images to the local adapter and everything else
// to the remote picture fetcher.
type PictureRouter struct {
	Local  ports.PictureFetcher
	Remote ports.PictureFetcher
}

func (r PictureRouter) FetchImages(ctx context.Context, locator, dir string) ([]string, error) {
	if IsImage(locator) {
		return r.Local.FetchImages(ctx, locator, dir)
	}
	return r.Remote.FetchImages(ctx, locator, dir)
}
