package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/forPelevin/mediagrab/internal/planner"
	"github.com/forPelevin/mediagrab/internal/ports"
	"github.com/forPelevin/mediagrab/internal/procrun"
	"github.com/forPelevin/mediagrab/internal/types"
)

const (
	encodeTimeout = time.Hour
	probeTimeout  = time.Minute
)

type Adapter struct {
	run     ports.CommandRunner
	ffmpeg  string
	ffprobe string
	log     *slog.Logger
}

func New(run ports.CommandRunner, ffmpegPath, ffprobePath string, log *slog.Logger) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Adapter{run: run, ffmpeg: ffmpegPath, ffprobe: ffprobePath, log: log}
}

func (a *Adapter) Transcode(ctx context.Context, in, out string, d planner.Decision, o types.EncodeOptions) error {
	return a.exec(ctx, "transcode", TranscodeArgs(in, out, d, o))
}

func (a *Adapter) Remux(ctx context.Context, in, out string, o types.EncodeOptions) error {
	return a.exec(ctx, "remux", RemuxArgs(in, out, o))
}

func (a *Adapter) ExtractAudio(ctx context.Context, in, out string, o types.EncodeOptions) error {
	return a.exec(ctx, "extract audio", ExtractAudioArgs(in, out, o))
}

func (a *Adapter) ConvertImage(ctx context.Context, in, out string) error {
	return a.exec(ctx, "convert image", []string{"-y", "-i", in, "-c:v", "libwebp", out})
}

func (a *Adapter) exec(ctx context.Context, what string, args []string) error {
	res := a.run.Run(ctx, procrun.CommandSpec{
		Program: a.ffmpeg,
		Args:    append([]string{"-hide_banner", "-loglevel", "error"}, args...),
		Timeout: encodeTimeout,
	})
	if err := res.Err(); err != nil {
		return fmt.Errorf("ffmpeg %s: %w\n%s", what, err, res.Tail(10))
	}
	return nil
}

// TranscodeArgs re-encodes to H.264/AAC at the decision's size.
func TranscodeArgs(in, out string, d planner.Decision, o types.EncodeOptions) []string {
	w, h := strconv.Itoa(d.Width), strconv.Itoa(d.Height)
	vf := "scale=" + w + ":" + h
	if d.Pad {
		vf += ":force_original_aspect_ratio=decrease,pad=" + w + ":" + h + ":(ow-iw)/2:(oh-ih)/2"
	}

	args := []string{"-y", "-i", in}
	args = appendLimit(args, o.MaxDuration)
	args = append(args,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-b:v", "3500k",
		"-vf", vf,
		"-r", "30",
	)
	if d.Audio && o.Audio {
		args = append(args, "-c:a", "aac", "-b:a", "128k", "-ar", "44100")
	} else {
		args = append(args, "-an")
	}
	return append(args, out)
}

func RemuxArgs(in, out string, o types.EncodeOptions) []string {
	args := []string{"-y", "-i", in}
	args = appendLimit(args, o.MaxDuration)
	if o.Audio {
		args = append(args, "-c", "copy")
	} else {
		args = append(args, "-c:v", "copy", "-an")
	}
	return append(args, "-movflags", "+faststart", out)
}

func ExtractAudioArgs(in, out string, o types.EncodeOptions) []string {
	args := []string{"-y", "-i", in}
	args = appendLimit(args, o.MaxDuration)
	return append(args, "-vn", "-c:a", "aac", "-b:a", "128k", out)
}

func appendLimit(args []string, limit time.Duration) []string {
	if limit <= 0 {
		return args
	}
	return append(args, "-t", strconv.FormatFloat(limit.Seconds(), 'f', -1, 64))
}
