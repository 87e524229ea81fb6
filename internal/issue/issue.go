// Package issue decides what goes into today's issue: which collected items
// are new, which survive the lookback window, the canonical ordering every
// consumer uses, and how the seen-ID state advances afterwards.
package issue

import (
	"sort"
	"time"

	"github.com/matheuskafuri/paperpress/internal/store"
)

var jst = loadJST()

func loadJST() *time.Location {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		return time.FixedZone("JST", 9*60*60)
	}
	return loc
}

// DateJST returns the calendar date in Japan Standard Time, the dateline
// every issue is stamped with.
func DateJST(now time.Time) string {
	return now.In(jst).Format("2006-01-02")
}

// Sort returns a new slice in canonical order: published_at descending with
// ID descending as the tie-break. Timestamps are RFC3339 UTC strings, so
// plain string comparison is chronological; absent timestamps sort last.
// The order is total, and sorting an already-sorted slice is a no-op.
func Sort(items []store.Item) []store.Item {
	out := make([]store.Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PublishedAt != out[j].PublishedAt {
			return out[i].PublishedAt > out[j].PublishedAt
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// ComputeNew returns the items whose ID is not in the seen set. Inputs are
// not mutated.
func ComputeNew(items []store.Item, st store.State) []store.Item {
	seen := st.Seen()
	out := make([]store.Item, 0, len(items))
	for _, it := range items {
		if !seen[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

// PublishedTime parses the item's timestamp. ok is false when the timestamp
// is absent or not RFC3339.
func PublishedTime(it store.Item) (time.Time, bool) {
	if it.PublishedAt == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, it.PublishedAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FilterByLookback keeps items published within the last days*24h, counting
// back from now. days <= 0 disables the filter. The cutoff boundary is
// inclusive, and items without a parseable timestamp are always kept so a
// malformed feed date can never silently drop a paper.
func FilterByLookback(items []store.Item, days int, now time.Time) []store.Item {
	if days <= 0 {
		return items
	}
	cutoff := now.UTC().Add(-time.Duration(days) * 24 * time.Hour)
	out := make([]store.Item, 0, len(items))
	for _, it := range items {
		t, ok := PublishedTime(it)
		if !ok || !t.Before(cutoff) {
			out = append(out, it)
		}
	}
	return out
}

// Resolution is the working set for one day's issue.
type Resolution struct {
	Date         string
	NewItems     []store.Item // unseen items, canonical order
	Items        []store.Item // NewItems surviving the lookback window
	SkippedCount int
}

// Resolve computes the day's working set from the collected items and state.
func Resolve(items []store.Item, st store.State, lookbackDays int, now time.Time) Resolution {
	newItems := Sort(ComputeNew(items, st))
	included := Sort(FilterByLookback(newItems, lookbackDays, now))
	return Resolution{
		Date:         DateJST(now),
		NewItems:     newItems,
		Items:        included,
		SkippedCount: len(newItems) - len(included),
	}
}

// NextState returns the state after publishing the resolution. With no
// lookback window, or with markSkippedAsSeen set, every new item is marked;
// otherwise only the items that made the issue are, leaving skipped items
// eligible for a future run with a wider window. The seen set is unioned
// and sorted, and never shrinks.
func NextState(st store.State, res Resolution, lookbackDays int, markSkippedAsSeen bool) store.State {
	toMark := res.NewItems
	if lookbackDays > 0 && !markSkippedAsSeen {
		toMark = res.Items
	}

	seen := st.Seen()
	for _, it := range toMark {
		if it.ID != "" {
			seen[it.ID] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return store.State{LastRunDateJST: res.Date, SeenIDs: ids}
}
