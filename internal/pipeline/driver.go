package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/forPelevin/mediagrab/internal/fsutil"
	"github.com/forPelevin/mediagrab/internal/types"
)

type Processor interface {
	Process(ctx context.Context, item types.WorkItem) types.ItemResult
}

// Cleaner removes per-item scratch files.
type Cleaner interface {
	Clean() error
}

type Summary struct {
	RunID      string
	Items      []types.ItemResult
	Succeeded  int
	Failed     int
	Duplicates int
	// Bytes is the total size of every output path reported by the items.
	Bytes   int64
	Elapsed time.Duration
}

func (s Summary) String() string {
	return fmt.Sprintf("%d succeeded, %d failed", s.Succeeded, s.Failed)
}

// Drive processes items one at a time. A failing or panicking item never
// stops the batch; a cancelled context fails every item not yet started.
func Drive(ctx context.Context, p Processor, items []types.WorkItem, c Cleaner, log *slog.Logger) Summary {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	start := time.Now()
	sum := Summary{Items: make([]types.ItemResult, 0, len(items))}

	for i, it := range items {
		var res types.ItemResult
		if err := ctx.Err(); err != nil {
			res = types.ItemResult{Locator: it.Locator, Title: it.Title, Err: err}
		} else {
			log.Info("processing", "n", i+1, "of", len(items), "item", it.Locator)
			res = processOne(ctx, p, it)
		}

		if c != nil {
			if err := c.Clean(); err != nil {
				log.Warn("cleanup after item", "item", it.Locator, "err", err)
			}
		}

		if res.OK() {
			sum.Succeeded++
			log.Info("item done", "item", it.Locator, "tiers", res.Acquired.String())
		} else {
			sum.Failed++
			log.Error("item failed", "item", it.Locator, "err", res.Err)
		}
		for _, path := range res.Paths {
			sum.Bytes += fsutil.Size(path)
		}
		sum.Items = append(sum.Items, res)
	}

	sum.Elapsed = time.Since(start)
	log.Info("batch finished", "succeeded", sum.Succeeded, "failed", sum.Failed, "elapsed", sum.Elapsed.Round(time.Millisecond).String())
	return sum
}

func processOne(ctx context.Context, p Processor, it types.WorkItem) (res types.ItemResult) {
	defer func() {
		if r := recover(); r != nil {
			res = types.ItemResult{
				Locator: it.Locator,
				Title:   it.Title,
				Err:     fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
			}
		}
	}()
	res = p.Process(ctx, it)
	if res.Acquired.Empty() && res.Err == nil {
		res.Err = fmt.Errorf("nothing acquired for %s", it.Locator)
	}
	return res
}
