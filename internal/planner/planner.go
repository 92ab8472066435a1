package planner

import "github.com/forPelevin/mediagrab/internal/types"

type Bucket int

const (
	Landscape Bucket = iota
	Portrait
	Square
)

func (b Bucket) String() string {
	switch b {
	case Landscape:
		return "landscape"
	case Portrait:
		return "portrait"
	case Square:
		return "square"
	}
	return "unknown"
}

func (b Bucket) Dimensions() types.Dimensions {
	switch b {
	case Portrait:
		return types.Dimensions{Width: 1080, Height: 1920}
	case Square:
		return types.Dimensions{Width: 1080, Height: 1080}
	}
	return types.Dimensions{Width: 1920, Height: 1080}
}

const (
	BaselineVideoCodec = "h264"
	BaselineAudioCodec = "aac"
)

// Even rounds n up to the next even number; libx264 needs even sizes.
func Even(n int) int { return n + n%2 }

func Classify(d types.Dimensions) Bucket {
	if d.Width <= 0 || d.Height <= 0 {
		return Landscape
	}
	ratio := float64(Even(d.Width)) / float64(Even(d.Height))
	switch {
	case ratio > 1.5:
		return Landscape
	case ratio < 0.67:
		return Portrait
	}
	return Square
}

type Policy struct {
	// PreserveSize keeps the source size instead of fitting a bucket.
	PreserveSize bool
	AllowUpscale bool
	// DropAudio is set when the output carries video only.
	DropAudio bool
}

type Decision struct {
	Bucket      Bucket
	Width       int
	Height      int
	Passthrough bool
	// Pad letterboxes the scaled picture to exactly Width x Height.
	Pad   bool
	Audio bool
}

func (d Decision) Size() types.Dimensions {
	return types.Dimensions{Width: d.Width, Height: d.Height}
}

func Plan(info types.MediaInfo, p Policy) Decision {
	src := info.Size.Value
	if src.Width <= 0 || src.Height <= 0 {
		src = types.DefaultDimensions
	}
	evenSrc := types.Dimensions{Width: Even(src.Width), Height: Even(src.Height)}

	d := Decision{
		Bucket: Classify(evenSrc),
		Audio:  !p.DropAudio && info.HasAudio.Value,
	}
	if p.PreserveSize {
		d.Width, d.Height = evenSrc.Width, evenSrc.Height
	} else {
		target := d.Bucket.Dimensions()
		if !p.AllowUpscale {
			target.Width = min(target.Width, evenSrc.Width)
			target.Height = min(target.Height, evenSrc.Height)
		}
		d.Width, d.Height = Even(target.Width), Even(target.Height)
		d.Pad = true
	}

	sameSize := d.Width == src.Width && d.Height == src.Height
	d.Passthrough = CodecsCompatible(info, !d.Audio) && (p.PreserveSize || sameSize)
	return d
}

// CodecsCompatible reports whether the streams already match the delivery
// baseline, so a remux is enough.
func CodecsCompatible(info types.MediaInfo, dropAudio bool) bool {
	if info.VideoCodec != BaselineVideoCodec {
		return false
	}
	if dropAudio || !info.HasAudio.Value {
		return true
	}
	return info.AudioCodec == BaselineAudioCodec
}
