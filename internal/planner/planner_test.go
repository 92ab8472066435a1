package planner

import (
	"testing"

	"github.com/forPelevin/mediagrab/internal/types"
)

func info(w, h int, vcodec, acodec string, hasAudio bool) types.MediaInfo {
	return types.MediaInfo{
		Size:       types.Known(types.Dimensions{Width: w, Height: h}),
		HasVideo:   types.Known(true),
		HasAudio:   types.Known(hasAudio),
		VideoCodec: vcodec,
		AudioCodec: acodec,
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		w, h int
		want Bucket
	}{
		{name: "ratio 1.6", w: 1600, h: 1000, want: Landscape},
		{name: "ratio 0.625", w: 1000, h: 1600, want: Portrait},
		{name: "ratio 1", w: 1000, h: 1000, want: Square},
		{name: "ratio exactly 1.5", w: 1500, h: 1000, want: Square},
		{name: "4:3", w: 640, h: 480, want: Square},
		{name: "16:9", w: 1280, h: 720, want: Landscape},
		{name: "9:16", w: 720, h: 1280, want: Portrait},
		{name: "zero", w: 0, h: 0, want: Landscape},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(types.Dimensions{Width: tc.w, Height: tc.h}); got != tc.want {
				t.Fatalf("Classify(%dx%d) = %v, want %v", tc.w, tc.h, got, tc.want)
			}
		})
	}
}

func TestPlan_BucketCappedAtSource(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		w, h         int
		bucket       Bucket
		wantW, wantH int
	}{
		{name: "landscape smaller than bucket", w: 1600, h: 1000, bucket: Landscape, wantW: 1600, wantH: 1000},
		{name: "portrait smaller than bucket", w: 1000, h: 1600, bucket: Portrait, wantW: 1000, wantH: 1600},
		{name: "square", w: 1000, h: 1000, bucket: Square, wantW: 1000, wantH: 1000},
		{name: "4k landscape", w: 3840, h: 2160, bucket: Landscape, wantW: 1920, wantH: 1080},
		{name: "odd sizes", w: 1281, h: 719, bucket: Landscape, wantW: 1282, wantH: 720},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := Plan(info(tc.w, tc.h, "vp9", "opus", true), Policy{})
			if d.Bucket != tc.bucket {
				t.Fatalf("bucket = %v, want %v", d.Bucket, tc.bucket)
			}
			if d.Width != tc.wantW || d.Height != tc.wantH {
				t.Fatalf("target = %dx%d, want %dx%d", d.Width, d.Height, tc.wantW, tc.wantH)
			}
			if d.Width%2 != 0 || d.Height%2 != 0 {
				t.Fatalf("target must be even: %dx%d", d.Width, d.Height)
			}
			if d.Passthrough {
				t.Fatalf("vp9/opus must not pass through")
			}
			if !d.Pad {
				t.Fatalf("bucket targets are padded")
			}
		})
	}
}

func TestPlan_Upscale(t *testing.T) {
	t.Parallel()

	d := Plan(info(640, 360, "h264", "aac", true), Policy{AllowUpscale: true})
	if d.Width != 1920 || d.Height != 1080 {
		t.Fatalf("target = %dx%d", d.Width, d.Height)
	}
	if d.Passthrough {
		t.Fatalf("upscaling requires a transcode")
	}
}

func TestPlan_Passthrough(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		info   types.MediaInfo
		policy Policy
		want   bool
	}{
		{name: "h264 aac fits bucket", info: info(1280, 720, "h264", "aac", true), want: true},
		{name: "h264 no audio", info: info(1280, 720, "h264", "", false), want: true},
		{name: "h264 opus", info: info(1280, 720, "h264", "opus", true), want: false},
		{name: "h264 opus dropped audio", info: info(1280, 720, "h264", "opus", true), policy: Policy{DropAudio: true}, want: true},
		{name: "hevc aac", info: info(1280, 720, "hevc", "aac", true), want: false},
		{name: "h264 aac larger than bucket", info: info(3840, 2160, "h264", "aac", true), want: false},
		{name: "keep original large", info: info(3840, 2160, "h264", "aac", true), policy: Policy{PreserveSize: true}, want: true},
		{name: "h264 odd size", info: info(1281, 720, "h264", "aac", true), want: false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Plan(tc.info, tc.policy).Passthrough; got != tc.want {
				t.Fatalf("passthrough = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPlan_PreserveSize(t *testing.T) {
	t.Parallel()

	d := Plan(info(1281, 721, "vp9", "opus", true), Policy{PreserveSize: true})
	if d.Width != 1282 || d.Height != 722 {
		t.Fatalf("target = %dx%d", d.Width, d.Height)
	}
	if d.Pad {
		t.Fatalf("preserve size must not pad")
	}
	if !d.Audio {
		t.Fatalf("audio must be kept")
	}
}

func TestPlan_DefaultedDimensions(t *testing.T) {
	t.Parallel()

	in := types.MediaInfo{Size: types.Default(types.Dimensions{})}
	d := Plan(in, Policy{})
	if d.Bucket != Landscape || d.Width != 1920 || d.Height != 1080 {
		t.Fatalf("decision = %+v", d)
	}
	if d.Audio {
		t.Fatalf("unknown audio must be dropped")
	}
}

func TestEven(t *testing.T) {
	t.Parallel()

	for in, want := range map[int]int{0: 0, 1: 2, 2: 2, 1079: 1080, 1080: 1080} {
		if got := Even(in); got != want {
			t.Fatalf("Even(%d) = %d, want %d", in, got, want)
		}
	}
}
