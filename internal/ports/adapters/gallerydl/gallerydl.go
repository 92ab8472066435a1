package gallerydl

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/forPelevin/mediagrab/internal/ports"
	"github.com/forPelevin/mediagrab/internal/procrun"
)

const DefaultTimeout = 300 * time.Second

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".gif": true, ".bmp": true,
}

type Adapter struct {
	run                ports.CommandRunner
	bin                string
	cookiesFromBrowser string
	timeout            time.Duration
}

func New(run ports.CommandRunner, bin, cookiesFromBrowser string) *Adapter {
	if bin == "" {
		bin = "gallery-dl"
	}
	return &Adapter{run: run, bin: bin, cookiesFromBrowser: cookiesFromBrowser, timeout: DefaultTimeout}
}

func (a *Adapter) FetchImages(ctx context.Context, locator, dir string) ([]string, error) {
	var args []string
	if a.cookiesFromBrowser != "" && a.cookiesFromBrowser != "none" {
		args = append(args, "--cookies-from-browser", a.cookiesFromBrowser)
	}
	args = append(args, "-D", dir, locator)

	res := a.run.Run(ctx, procrun.CommandSpec{
		Program: a.bin,
		Args:    args,
		Timeout: a.timeout,
	})
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("gallery-dl: %w", err)
	}

	files, err := ListImages(dir)
	if err != nil {
		return nil, fmt.Errorf("gallery-dl: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("gallery-dl: no images in %s", dir)
	}
	return files, nil
}

// ListImages walks dir and returns image files sorted by path.
func ListImages(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && imageExts[strings.ToLower(filepath.Ext(p))] {
			out = append(out, p)
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}
