package naming

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// Existing is an output already present in a directory.
type Existing struct {
	Prefix string
	Number int
	// Split is "_video" or "_audio" for the halves of a split output and
	// empty otherwise.
	Split string
	Path  string
}

// split outputs always carry these extensions.
var splitExt = map[string]string{"_video": ".mp4", "_audio": ".m4a"}

// Scan lists the outputs in dir that were produced for token, so a rerun can
// tell which tiers an item already has. Sidecars such as thumbnails are not
// reported.
func Scan(dir, token string) ([]Existing, error) {
	if token == "" {
		return nil, nil
	}
	re := regexp.MustCompile(`^([A-Z])_([0-9]+)_` + regexp.QuoteMeta(token) + `(_video|_audio)?(\.[A-Za-z0-9]+)$`)

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []Existing
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := re.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if m[3] != "" && splitExt[m[3]] != m[4] {
			continue
		}
		n, _ := strconv.Atoi(m[2])
		out = append(out, Existing{Prefix: m[1], Number: n, Split: m[3], Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Prefix != out[j].Prefix {
			return out[i].Prefix < out[j].Prefix
		}
		return out[i].Number < out[j].Number
	})
	return out, nil
}
