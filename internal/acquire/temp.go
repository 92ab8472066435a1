package acquire

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	tempDownload = "temp_download"
	tempAudio    = "temp_audio"
	tempOutput   = "temp_output"
	tempImages   = "temp_images"
)

var tempStems = []string{tempDownload, tempAudio, tempOutput, tempImages}

// TempSet names the fixed scratch paths used while processing one item.
// They live in the output directory so final moves stay on one filesystem.
type TempSet struct {
	Dir string
}

func (t TempSet) Media() string { return filepath.Join(t.Dir, tempDownload) }

func (t TempSet) Audio() string { return filepath.Join(t.Dir, tempAudio) }

func (t TempSet) Output(ext string) string { return filepath.Join(t.Dir, tempOutput+ext) }

func (t TempSet) Images() string { return filepath.Join(t.Dir, tempImages) }

// Leftovers lists scratch files and directories currently present.
func (t TempSet) Leftovers() ([]string, error) {
	entries, err := os.ReadDir(t.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if isTemp(e.Name()) {
			out = append(out, filepath.Join(t.Dir, e.Name()))
		}
	}
	return out, nil
}

func isTemp(name string) bool {
	for _, s := range tempStems {
		if name == s || strings.HasPrefix(name, s+".") {
			return true
		}
	}
	return false
}

func (t TempSet) Clean() error {
	paths, err := t.Leftovers()
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
