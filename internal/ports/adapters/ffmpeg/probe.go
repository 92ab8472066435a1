package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/forPelevin/mediagrab/internal/procrun"
	"github.com/forPelevin/mediagrab/internal/types"
)

func (a *Adapter) probe(ctx context.Context, args ...string) (string, bool) {
	res := a.run.Run(ctx, procrun.CommandSpec{
		Program: a.ffprobe,
		Args:    append([]string{"-v", "error"}, args...),
		Timeout:    probeTimeout,
		Quiet:      true,
		StdoutOnly: true,
	})
	return res.Output, res.OK()
}

// Duration is 0 and defaulted when ffprobe cannot tell.
func (a *Adapter) Duration(ctx context.Context, path string) types.Probed[float64] {
	out, ok := a.probe(ctx,
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if !ok {
		return types.Default(0.0)
	}
	sec, ok := ParseDuration(out)
	if !ok {
		return types.Default(0.0)
	}
	return types.Known(sec)
}

func (a *Adapter) HasAudio(ctx context.Context, path string) types.Probed[bool] {
	return a.hasStream(ctx, path, "a")
}

func (a *Adapter) HasVideo(ctx context.Context, path string) types.Probed[bool] {
	return a.hasStream(ctx, path, "v")
}

// hasStream trusts the stream listing, not the exit code: ffprobe exits 0
// with an empty listing when the stream type is absent.
func (a *Adapter) hasStream(ctx context.Context, path, kind string) types.Probed[bool] {
	out, ok := a.probe(ctx,
		"-show_streams",
		"-select_streams", kind,
		"-of", "default=noprint_wrappers=1",
		path,
	)
	if !ok {
		return types.Default(false)
	}
	return types.Known(strings.TrimSpace(out) != "")
}

func (a *Adapter) Dimensions(ctx context.Context, path string) types.Probed[types.Dimensions] {
	out, ok := a.probe(ctx,
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "json",
		path,
	)
	if ok {
		if d, err := ParseDimensions([]byte(out)); err == nil {
			return types.Known(d)
		}
	}
	a.log.Warn("could not read video dimensions, using default",
		"path", path,
		"default", strconv.Itoa(types.DefaultDimensions.Width)+"x"+strconv.Itoa(types.DefaultDimensions.Height),
	)
	return types.Default(types.DefaultDimensions)
}

// Codec returns the codec name of the first stream matching selector
// ("v:0", "a:0"), or "" when unknown.
func (a *Adapter) Codec(ctx context.Context, path, selector string) string {
	out, ok := a.probe(ctx,
		"-select_streams", selector,
		"-show_entries", "stream=codec_name",
		"-of", "json",
		path,
	)
	if !ok {
		return ""
	}
	return ParseCodecName([]byte(out))
}

func (a *Adapter) Inspect(ctx context.Context, path string) types.MediaInfo {
	info := types.MediaInfo{
		Duration: a.Duration(ctx, path),
		HasAudio: a.HasAudio(ctx, path),
		HasVideo: a.HasVideo(ctx, path),
	}
	if info.HasVideo.Value {
		info.Size = a.Dimensions(ctx, path)
		info.VideoCodec = a.Codec(ctx, path, "v:0")
	} else {
		info.Size = types.Default(types.DefaultDimensions)
	}
	if info.HasAudio.Value {
		info.AudioCodec = a.Codec(ctx, path, "a:0")
	}
	return info
}

func ParseDuration(out string) (float64, bool) {
	s := strings.TrimSpace(out)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil || sec < 0 || math.IsNaN(sec) || math.IsInf(sec, 0) {
		return 0, false
	}
	return sec, true
}

type streamsJSON struct {
	Streams []struct {
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func ParseDimensions(b []byte) (types.Dimensions, error) {
	var s streamsJSON
	if err := json.Unmarshal(b, &s); err != nil {
		return types.Dimensions{}, err
	}
	if len(s.Streams) == 0 {
		return types.Dimensions{}, errors.New("no video stream")
	}
	d := types.Dimensions{Width: s.Streams[0].Width, Height: s.Streams[0].Height}
	if d.Width <= 0 || d.Height <= 0 {
		return types.Dimensions{}, errors.New("stream has no size")
	}
	return d, nil
}

func ParseCodecName(b []byte) string {
	var s streamsJSON
	if err := json.Unmarshal(b, &s); err != nil || len(s.Streams) == 0 {
		return ""
	}
	return s.Streams[0].CodecName
}
