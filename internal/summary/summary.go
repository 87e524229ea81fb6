// Package summary orchestrates the optional LLM pass over an issue's
// items: a daily digest, per-paper one-liners and a daily trend note.
package summary

import (
	"context"
	"log/slog"

	"github.com/matheuskafuri/paperpress/internal/store"
)

// Summarizer is the LLM surface the orchestrator needs.
type Summarizer interface {
	SummarizeItem(ctx context.Context, item store.Item) (store.Summary, error)
	Trend(ctx context.Context, items []store.Item) (store.Trend, error)
	Digest(ctx context.Context, items []store.Item, featuredCount int) (store.Digest, error)
}

// RunOpts carries the per-run knobs from configuration.
type RunOpts struct {
	MaxItems       int
	TrendEnabled   bool
	TrendMaxItems  int
	DigestEnabled  bool
	DigestMaxItems int
	FeaturedPapers int
}

// Run enriches the summary file in place for one issue date and reports
// whether anything changed. The digest runs first so its featured picks
// can steer which papers get one-liners; the trend note runs last. Every
// call fails independently: a failure is logged and skipped, leaving the
// work to be retried on the next run.
func Run(ctx context.Context, llm Summarizer, items []store.Item, file *store.SummaryFile, date string, opts RunOpts, log *slog.Logger) bool {
	if len(items) == 0 {
		return false
	}
	changed := false

	if opts.DigestEnabled && file.DigestFor(date) == nil {
		featured := opts.FeaturedPapers
		if featured < 1 {
			featured = 1
		}
		digest, err := llm.Digest(ctx, head(items, floorOne(opts.DigestMaxItems)), featured)
		if err != nil {
			log.Warn("digest failed", "date", date, "err", err)
		} else {
			file.SetDigest(date, digest)
			changed = true
			log.Info("summarized digest", "date", date)
		}
	}

	// The cap applies to the prioritized list as a whole, so papers that
	// already have a summary still consume slots.
	for _, item := range prioritize(items, file.DigestFor(date), opts.MaxItems) {
		if item.ID == "" {
			continue
		}
		if _, ok := file.Summaries[item.ID]; ok {
			continue
		}
		s, err := llm.SummarizeItem(ctx, item)
		if err != nil {
			log.Warn("item summary failed", "id", item.ID, "err", err)
			continue
		}
		file.Summaries[item.ID] = s
		changed = true
		log.Info("summarized item", "id", item.ID)
	}

	if opts.TrendEnabled && file.TrendFor(date) == nil {
		trend, err := llm.Trend(ctx, head(items, floorOne(opts.TrendMaxItems)))
		if err != nil {
			log.Warn("trend failed", "date", date, "err", err)
		} else {
			file.SetTrend(date, trend)
			changed = true
			log.Info("summarized trend", "date", date)
		}
	}

	return changed
}

// prioritize orders the issue items so the digest's featured papers come
// first, then applies the per-run cap.
func prioritize(items []store.Item, digest *store.Digest, max int) []store.Item {
	byID := make(map[string]store.Item, len(items))
	for _, it := range items {
		if it.ID != "" {
			byID[it.ID] = it
		}
	}

	used := make(map[string]bool)
	prioritized := make([]store.Item, 0, len(items))
	if digest != nil {
		for _, fid := range digest.FeaturedIDs {
			if it, ok := byID[fid]; ok && !used[fid] {
				prioritized = append(prioritized, it)
				used[fid] = true
			}
		}
	}
	for _, it := range items {
		if it.ID != "" && used[it.ID] {
			continue
		}
		prioritized = append(prioritized, it)
	}

	if max < 0 {
		max = 0
	}
	return head(prioritized, max)
}

func head(items []store.Item, n int) []store.Item {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func floorOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
