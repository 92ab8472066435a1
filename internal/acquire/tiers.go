package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/forPelevin/mediagrab/internal/fsutil"
	"github.com/forPelevin/mediagrab/internal/naming"
	"github.com/forPelevin/mediagrab/internal/planner"
	"github.com/forPelevin/mediagrab/internal/ports"
	"github.com/forPelevin/mediagrab/internal/types"
)

const (
	PrefixOriginal  = "O"
	PrefixUniversal = "U"
	PrefixPicture   = "P"
	PrefixVideo     = "V"
	PrefixAudio     = "A"

	splitVideoExt   = "_video.mp4"
	audioSuffixStem = "_audio"
	splitAudioExt   = audioSuffixStem + ".m4a"

	// slack tolerated between a probed duration and the cap before trimming.
	durationSlack = 0.5

	// image codecs running shorter than this are treated as stills.
	stillMaxSeconds = 1.0
)

var errStillImage = errors.New("download is a still image, leaving it to the picture tier")

// ffprobe lists a still image as a single frame video stream.
var imageCodecs = map[string]bool{
	"mjpeg": true, "png": true, "webp": true, "bmp": true, "gif": true, "tiff": true,
}

func isStill(info types.MediaInfo) bool {
	if info.HasAudio.Value || !imageCodecs[info.VideoCodec] {
		return false
	}
	return info.Duration.Defaulted || info.Duration.Value < stillMaxSeconds
}

func (m *Machine) original(ctx context.Context, it *item) (types.TierSet, error) {
	src, err := m.fetch(ctx, it, types.ModalityCombined)
	if err != nil {
		return 0, err
	}
	info := m.d.Probe.Inspect(ctx, src.Path)
	if !info.HasVideo.Value {
		return 0, errors.New("no video stream in combined download")
	}
	if isStill(info) {
		return 0, errStillImage
	}
	if m.opts.Mode == ModeSplit {
		return m.finishSplit(ctx, it, src, info)
	}
	return m.finishVideo(ctx, it, types.TierOriginal, src, info)
}

func (m *Machine) picture(ctx context.Context, it *item) (types.TierSet, error) {
	if m.d.Pictures == nil || m.d.Images == nil {
		return 0, errors.New("picture fetching is not configured")
	}
	dir := m.temp.Images()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	files, err := m.d.Pictures.FetchImages(ctx, it.Locator, dir)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, errors.New("no images downloaded")
	}
	src := files[0]

	out, ext := m.temp.Output(m.d.Images.Ext()), m.d.Images.Ext()
	if err := m.d.Images.Normalize(src, out); err != nil {
		if !errors.Is(err, ports.ErrUnsupportedImage) {
			return 0, fmt.Errorf("normalize image: %w", err)
		}
		it.log.Warn("keeping image as downloaded", "err", err)
		out, ext = src, strings.ToLower(filepath.Ext(src))
	}

	a, err := m.place(it, PrefixPicture, ext, out)
	if err != nil {
		return 0, err
	}
	it.log.Info("saved picture", "path", a.Path)
	return types.NewTierSet(types.TierPicture), nil
}

func (m *Machine) video(ctx context.Context, it *item) (types.TierSet, error) {
	src, err := m.fetch(ctx, it, types.ModalityVideo)
	if err != nil {
		return 0, err
	}
	info := m.d.Probe.Inspect(ctx, src.Path)
	if !info.HasVideo.Value {
		return 0, errors.New("no video stream in video download")
	}
	if isStill(info) {
		return 0, errStillImage
	}
	return m.finishVideo(ctx, it, types.TierVideo, src, info)
}

// audio is the last rung. Some sites answer an audio-only request with a
// muxed file, so the result is reclassified by what it actually contains.
func (m *Machine) audio(ctx context.Context, it *item) (types.TierSet, error) {
	src, err := m.fetch(ctx, it, types.ModalityAudio)
	if err != nil {
		return 0, err
	}
	info := m.d.Probe.Inspect(ctx, src.Path)
	// An image stream next to audio is cover art, not video.
	hasVideo := info.HasVideo.Value && !imageCodecs[info.VideoCodec]

	switch {
	case hasVideo && info.HasAudio.Value && !it.Acquired.Has(types.TierOriginal):
		it.log.Info("audio request returned video and audio, saving as original")
		return m.finishVideo(ctx, it, types.TierOriginal, src, info)
	case hasVideo && !info.HasAudio.Value && !it.Acquired.Has(types.TierVideo):
		it.log.Info("audio request returned video only, saving as video")
		return m.finishVideo(ctx, it, types.TierVideo, src, info)
	case !info.HasAudio.Value:
		return 0, errors.New("no audio stream in audio download")
	}

	out := m.temp.Output(".m4a")
	opts := types.EncodeOptions{Audio: true, MaxDuration: m.limit(info)}
	if err := m.d.Media.ExtractAudio(ctx, src.Path, out, opts); err != nil {
		return 0, err
	}
	a, err := m.place(it, PrefixAudio, ".m4a", out)
	if err != nil {
		return 0, err
	}
	m.logSaved(it, a.Path)
	return types.NewTierSet(types.TierAudio), nil
}

// extractAudio derives an audio file from the final original output.
func (m *Machine) extractAudio(ctx context.Context, it *item) {
	if it.original == "" || it.Acquired.Has(types.TierAudio) {
		return
	}
	m.clean(it)
	out := m.temp.Output(".m4a")
	if err := m.d.Media.ExtractAudio(ctx, it.original, out, types.EncodeOptions{Audio: true}); err != nil {
		it.log.Warn("extract audio failed", "err", err)
		return
	}
	a, err := m.place(it, PrefixAudio, ".m4a", out)
	if err != nil {
		it.log.Warn("extract audio failed", "err", err)
		return
	}
	it.Acquired = it.Acquired.With(types.TierAudio)
	m.logSaved(it, a.Path)
}

func (m *Machine) fetch(ctx context.Context, it *item, mod types.Modality) (ports.FetchResult, error) {
	base := m.temp.Media()
	if mod == types.ModalityAudio {
		base = m.temp.Audio()
	}
	res, err := m.d.Fetcher.Fetch(ctx, ports.FetchRequest{
		Locator:     it.Locator,
		Modality:    mod,
		Base:        base,
		Thumbnail:   m.opts.Thumbnails,
		MaxDuration: m.opts.MaxDuration,
	})
	if err != nil {
		return ports.FetchResult{}, err
	}
	it.adoptTitle(res.Title)
	return res, nil
}

func (m *Machine) finishVideo(ctx context.Context, it *item, tier types.Tier, src ports.FetchResult, info types.MediaInfo) (types.TierSet, error) {
	prefix := PrefixVideo
	if tier == types.TierOriginal {
		prefix = PrefixUniversal
		if m.opts.KeepOriginal {
			prefix = PrefixOriginal
		}
	}

	d := planner.Plan(info, planner.Policy{
		PreserveSize: m.opts.KeepOriginal,
		DropAudio:    tier == types.TierVideo,
	})
	out := m.temp.Output(".mp4")
	if err := m.render(ctx, it, src.Path, out, d, info); err != nil {
		return 0, err
	}

	a, err := m.place(it, prefix, ".mp4", out, m.thumbSidecars(src)...)
	if err != nil {
		return 0, err
	}
	m.placeThumbnail(ctx, it, src.Thumbnail, a.Sidecar(naming.ThumbSuffix))
	if tier == types.TierOriginal {
		it.original = a.Path
	}
	m.logSaved(it, a.Path)
	return types.NewTierSet(tier), nil
}

// finishSplit writes the video stream and the audio stream of a combined
// download as two files sharing one base name.
func (m *Machine) finishSplit(ctx context.Context, it *item, src ports.FetchResult, info types.MediaInfo) (types.TierSet, error) {
	prefix := PrefixUniversal
	if m.opts.KeepOriginal {
		prefix = PrefixOriginal
	}
	sidecars := append([]string{splitAudioExt}, m.thumbSidecars(src)...)
	a, err := m.names.Allocate(m.dir, prefix, it.token, splitVideoExt, sidecars...)
	if err != nil {
		return 0, err
	}

	d := planner.Plan(info, planner.Policy{PreserveSize: m.opts.KeepOriginal, DropAudio: true})
	videoOut := m.temp.Output(".mp4")
	if err := m.render(ctx, it, src.Path, videoOut, d, info); err != nil {
		return 0, err
	}
	audioOut := ""
	if info.HasAudio.Value {
		audioOut = m.temp.Output(".m4a")
		opts := types.EncodeOptions{Audio: true, MaxDuration: m.limit(info)}
		if err := m.d.Media.ExtractAudio(ctx, src.Path, audioOut, opts); err != nil {
			return 0, err
		}
	}

	a, err = m.names.Confirm(a)
	if err != nil {
		return 0, err
	}
	if err := fsutil.Move(videoOut, a.Path); err != nil {
		return 0, err
	}
	it.paths = append(it.paths, a.Path)
	it.original = a.Path
	m.logSaved(it, a.Path)

	got := types.NewTierSet(types.TierOriginal)
	if audioOut != "" {
		dst := a.Sidecar(splitAudioExt)
		if err := fsutil.Move(audioOut, dst); err != nil {
			it.log.Warn("move split audio", "err", err)
		} else {
			it.paths = append(it.paths, dst)
			got = got.With(types.TierAudio)
			m.logSaved(it, dst)
		}
	}
	m.placeThumbnail(ctx, it, src.Thumbnail, a.Sidecar(naming.ThumbSuffix))
	return got, nil
}

// render remuxes when the plan allows it and transcodes otherwise, or when
// the remux fails.
func (m *Machine) render(ctx context.Context, it *item, in, out string, d planner.Decision, info types.MediaInfo) error {
	opts := types.EncodeOptions{Audio: d.Audio, MaxDuration: m.limit(info)}
	if d.Passthrough {
		err := m.d.Media.Remux(ctx, in, out, opts)
		if err == nil {
			return nil
		}
		it.log.Warn("remux failed, transcoding", "err", err)
		_ = os.Remove(out)
	}
	it.log.Info("transcoding", "bucket", d.Bucket.String(), "width", d.Width, "height", d.Height)
	return m.d.Media.Transcode(ctx, in, out, d, opts)
}

// limit returns the trim length to apply locally, or 0 when the download
// already honours the cap.
func (m *Machine) limit(info types.MediaInfo) time.Duration {
	if m.opts.MaxDuration <= 0 {
		return 0
	}
	if info.Duration.Defaulted || info.Duration.Value > m.opts.MaxDuration.Seconds()+durationSlack {
		return m.opts.MaxDuration
	}
	return 0
}

func (m *Machine) place(it *item, prefix, ext, src string, sidecars ...string) (naming.Allocation, error) {
	a, err := m.names.Allocate(m.dir, prefix, it.token, ext, sidecars...)
	if err != nil {
		return naming.Allocation{}, err
	}
	if err := fsutil.Move(src, a.Path); err != nil {
		return naming.Allocation{}, err
	}
	it.paths = append(it.paths, a.Path)
	return a, nil
}

func (m *Machine) thumbSidecars(src ports.FetchResult) []string {
	if !m.opts.Thumbnails || src.Thumbnail == "" {
		return nil
	}
	return []string{naming.ThumbSuffix}
}

// placeThumbnail stores the thumbnail as webp next to its media file. A
// missing or broken thumbnail never fails the tier.
func (m *Machine) placeThumbnail(ctx context.Context, it *item, thumb, dst string) {
	if thumb == "" || dst == "" {
		return
	}
	var err error
	if strings.EqualFold(filepath.Ext(thumb), ".webp") {
		err = fsutil.Move(thumb, dst)
	} else {
		err = m.d.Media.ConvertImage(ctx, thumb, dst)
	}
	if err != nil {
		it.log.Warn("thumbnail not saved", "err", err)
		return
	}
	it.paths = append(it.paths, dst)
}

func (m *Machine) logSaved(it *item, path string) {
	it.log.Info("saved", "path", path, "size", humanize.Bytes(uint64(fsutil.Size(path))))
}
