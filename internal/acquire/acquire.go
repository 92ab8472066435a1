package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/forPelevin/mediagrab/internal/naming"
	"github.com/forPelevin/mediagrab/internal/ports"
	"github.com/forPelevin/mediagrab/internal/types"
)

var ErrTierExhausted = errors.New("all acquisition tiers failed")

type Mode string

const (
	ModeAll      Mode = "all"
	ModeCombined Mode = "combined"
	ModeVideo    Mode = "video"
	ModeAudio    Mode = "audio"
	ModePicture  Mode = "pic"
	ModeSplit    Mode = "split"
)

var Modes = []Mode{ModeAll, ModeCombined, ModeVideo, ModeAudio, ModePicture, ModeSplit}

func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

type Options struct {
	Mode Mode
	// KeepOriginal keeps the source size and allows remuxing it as is.
	KeepOriginal bool
	// ExtractAudio also writes the audio of an acquired original as its own file.
	ExtractAudio bool
	Thumbnails   bool
	// LinkNames names outputs after the URL instead of the title.
	LinkNames   bool
	MaxDuration time.Duration
}

type Deps struct {
	Fetcher  ports.Fetcher
	Pictures ports.PictureFetcher
	Probe    ports.Prober
	Media    ports.Transcoder
	Images   ports.ImageNormalizer
	Log      *slog.Logger
}

type Machine struct {
	d     Deps
	opts  Options
	dir   string
	names *naming.Context
	temp  TempSet
	steps []step
}

// step is one row of the tier table: ready is only consulted in the
// all-tiers ladder.
type step struct {
	tier  types.Tier
	ready func(*item) bool
	run   func(context.Context, *item) (types.TierSet, error)
}

type item struct {
	types.WorkItem
	token     string
	attempted types.TierSet
	resumed   types.TierSet
	paths     []string
	// original is the final path of the combined output, if any.
	original string
	log      *slog.Logger
}

func New(d Deps, dir string, names *naming.Context, opts Options) *Machine {
	if d.Log == nil {
		d.Log = slog.New(slog.DiscardHandler)
	}
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	m := &Machine{d: d, opts: opts, dir: dir, names: names, temp: TempSet{Dir: dir}}
	m.steps = m.table()
	return m
}

func (m *Machine) table() []step {
	original := step{tier: types.TierOriginal, ready: originalReady, run: m.original}
	picture := step{tier: types.TierPicture, ready: pictureReady, run: m.picture}
	video := step{tier: types.TierVideo, ready: videoReady, run: m.video}
	audio := step{tier: types.TierAudio, ready: audioReady, run: m.audio}

	switch m.opts.Mode {
	case ModeCombined, ModeSplit:
		return []step{original}
	case ModeVideo:
		return []step{video}
	case ModeAudio:
		return []step{audio}
	case ModePicture:
		return []step{picture}
	}
	return []step{original, picture, video, audio}
}

func originalReady(it *item) bool { return !it.Acquired.Has(types.TierOriginal) }

func pictureReady(it *item) bool {
	if it.Acquired.Has(types.TierOriginal) {
		return false
	}
	if !IsVideoPlatform(it.Locator) {
		return true
	}
	seen := it.attempted | it.Acquired
	return !seen.Has(types.TierVideo) && !seen.Has(types.TierAudio)
}

func videoReady(it *item) bool {
	return !it.Acquired.Has(types.TierOriginal) && !it.Acquired.Has(types.TierPicture)
}

func audioReady(it *item) bool {
	return videoReady(it) && !it.Acquired.Has(types.TierVideo)
}

func (m *Machine) Mode() Mode { return m.opts.Mode }

// Temp exposes the fixed temporary paths so the batch driver can sweep them.
func (m *Machine) Temp() TempSet { return m.temp }

func (m *Machine) Process(ctx context.Context, wi types.WorkItem) types.ItemResult {
	it := &item{WorkItem: wi, log: m.d.Log.With("item", wi.Locator)}
	defer m.clean(it)

	m.resolveName(ctx, it)
	m.resume(it)

	for _, s := range m.steps {
		if ctx.Err() != nil {
			break
		}
		if it.Acquired.Has(s.tier) {
			continue
		}
		if m.opts.Mode == ModeAll && !s.ready(it) {
			continue
		}

		m.clean(it)
		it.attempted = it.attempted.With(s.tier)
		it.log.Info("trying tier", "tier", s.tier.String())
		got, err := s.run(ctx, it)
		if err != nil {
			it.log.Warn("tier failed", "tier", s.tier.String(), "err", err)
			continue
		}
		it.Acquired |= got
		it.log.Info("tier acquired", "tier", got.String())
	}

	if m.opts.ExtractAudio && ctx.Err() == nil {
		m.extractAudio(ctx, it)
	}

	res := types.ItemResult{
		Locator:  it.Locator,
		Title:    it.Title,
		Acquired: it.Acquired,
		Resumed:  it.resumed,
		Paths:    it.paths,
	}
	if it.Acquired.Empty() {
		res.Err = fmt.Errorf("%w: %s", ErrTierExhausted, it.Locator)
		if err := ctx.Err(); err != nil {
			res.Err = fmt.Errorf("%w: %w", ErrTierExhausted, err)
		}
	}
	return res
}

func (m *Machine) resolveName(ctx context.Context, it *item) {
	if m.opts.LinkNames {
		it.token = naming.LinkToken(it.Locator)
		return
	}
	if it.Title == "" && m.d.Fetcher != nil {
		t, err := m.d.Fetcher.Title(ctx, it.Locator)
		if err != nil {
			it.log.Debug("title lookup failed", "err", err)
		}
		it.Title = t
	}
	it.token = naming.Sanitize(it.Title)
}

// adoptTitle names the item after a title seen in fetch output when no
// title was known up front.
func (it *item) adoptTitle(title string) {
	if it.token != "" || title == "" {
		return
	}
	it.Title = title
	it.token = naming.Sanitize(title)
}

func (m *Machine) resume(it *item) {
	found, err := naming.Scan(m.dir, it.token)
	if err != nil {
		it.log.Warn("scan output dir", "err", err)
		return
	}
	for _, e := range found {
		t, ok := tierOf(e, m.opts.Mode == ModeSplit)
		if !ok {
			continue
		}
		it.resumed = it.resumed.With(t)
		it.paths = append(it.paths, e.Path)
		if t == types.TierOriginal && it.original == "" {
			it.original = e.Path
		}
	}
	if !it.resumed.Empty() {
		it.Acquired |= it.resumed
		it.log.Info("already present, skipping", "tiers", it.resumed.String())
	}
}

// tierOf maps an output on disk to the tier it stands for. Split halves
// exist only under the O and U prefixes. A "_video.mp4" half is only claimed
// in split mode; in the other modes it is another item's original whose
// title ends in "video".
func tierOf(e naming.Existing, split bool) (types.Tier, bool) {
	if e.Split != "" {
		if e.Prefix != PrefixOriginal && e.Prefix != PrefixUniversal {
			return 0, false
		}
		if e.Split == audioSuffixStem {
			return types.TierAudio, true
		}
		if !split {
			return 0, false
		}
		return types.TierOriginal, true
	}
	switch e.Prefix {
	case PrefixOriginal, PrefixUniversal:
		// an O or U .m4a is always the audio half of someone's split output
		return types.TierOriginal, filepath.Ext(e.Path) == ".mp4"
	case PrefixPicture:
		return types.TierPicture, true
	case PrefixVideo:
		return types.TierVideo, true
	case PrefixAudio:
		return types.TierAudio, true
	}
	return 0, false
}

func (m *Machine) clean(it *item) {
	if err := m.temp.Clean(); err != nil {
		it.log.Warn("cleanup temp files", "err", err)
	}
}
