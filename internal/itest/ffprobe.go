//go:build integration

package itest

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"testing"
)

func probeDurationSeconds(path string) (float64, error) {
	s, err := ffprobe(path, "-show_entries", "format=duration")
	if err != nil {
		return 0, err
	}
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return sec, nil
}

// probeVideo returns "WxH codec" for the first video stream.
func probeVideo(path string) (string, error) {
	s, err := ffprobe(path, "-select_streams", "v:0", "-show_entries", "stream=width,height,codec_name")
	if err != nil {
		return "", err
	}
	f := strings.Fields(s)
	if len(f) != 3 {
		return "", fmt.Errorf("unexpected ffprobe output %q", s)
	}
	// ffprobe prints codec_name, width, height in that order.
	return f[1] + "x" + f[2] + " " + f[0], nil
}

func ffprobe(path string, args ...string) (string, error) {
	full := append([]string{"-v", "error"}, args...)
	full = append(full, "-of", "default=noprint_wrappers=1:nokey=1", path)
	b, err := exec.Command("ffprobe", full...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}
	return strings.TrimSpace(string(b)), nil
}

// makeClip renders a test clip with a tone track using ffmpeg's lavfi sources.
func makeClip(t *testing.T, path, size, vcodec string, seconds int) {
	t.Helper()
	d := strconv.Itoa(seconds)
	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi", "-i", "testsrc=s="+size+":d="+d,
		"-f", "lavfi", "-i", "sine=frequency=440:duration="+d,
		"-shortest",
		"-c:v", vcodec,
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		path,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
}
