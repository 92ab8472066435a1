package types

import (
	"strings"
	"time"
)

// Tier is one acquisition strategy, in priority order.
type Tier int

const (
	TierOriginal Tier = iota
	TierPicture
	TierVideo
	TierAudio
)

var tierNames = [...]string{"original", "picture", "video", "audio"}

// Tiers lists all tiers in the order they are attempted.
var Tiers = []Tier{TierOriginal, TierPicture, TierVideo, TierAudio}

func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return "unknown"
	}
	return tierNames[t]
}

// TierSet is a set of tiers already satisfied for an item.
type TierSet uint8

func NewTierSet(tiers ...Tier) TierSet {
	var s TierSet
	for _, t := range tiers {
		s = s.With(t)
	}
	return s
}

func (s TierSet) Has(t Tier) bool { return s&(1<<uint(t)) != 0 }

func (s TierSet) With(t Tier) TierSet { return s | 1<<uint(t) }

func (s TierSet) Empty() bool { return s == 0 }

func (s TierSet) List() []Tier {
	var out []Tier
	for _, t := range Tiers {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s TierSet) String() string {
	if s.Empty() {
		return "none"
	}
	parts := make([]string, 0, len(Tiers))
	for _, t := range s.List() {
		parts = append(parts, t.String())
	}
	return strings.Join(parts, ",")
}

// Modality is what a fetch is asked to produce.
type Modality string

const (
	ModalityCombined Modality = "combined"
	ModalityVideo    Modality = "video"
	ModalityAudio    Modality = "audio"
)

type Dimensions struct {
	Width  int
	Height int
}

// DefaultDimensions is substituted when a video stream cannot be measured.
var DefaultDimensions = Dimensions{Width: 1920, Height: 1080}

// Probed carries a probe answer and whether it is a substituted default.
type Probed[T any] struct {
	Value     T
	Defaulted bool
}

func Known[T any](v T) Probed[T] { return Probed[T]{Value: v} }

func Default[T any](v T) Probed[T] { return Probed[T]{Value: v, Defaulted: true} }

// MediaInfo is recomputed per file per need; never persisted.
type MediaInfo struct {
	Duration   Probed[float64]
	HasAudio   Probed[bool]
	HasVideo   Probed[bool]
	Size       Probed[Dimensions]
	VideoCodec string
	AudioCodec string
}

type WorkItem struct {
	Locator  string
	Title    string
	Acquired TierSet
}

type ItemResult struct {
	Locator  string
	Title    string
	Acquired TierSet
	// Resumed holds tiers found already present in the output directory.
	Resumed TierSet
	Paths   []string
	Err     error
}

func (r ItemResult) OK() bool { return r.Err == nil && !r.Acquired.Empty() }

type EncodeOptions struct {
	Audio       bool
	MaxDuration time.Duration
}
