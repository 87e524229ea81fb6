package issue

import (
	"testing"
	"time"

	"github.com/matheuskafuri/paperpress/internal/store"
)

func item(id, published string) store.Item {
	return store.Item{ID: id, Source: "arxiv", PublishedAt: published}
}

func ids(items []store.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestSortOrder(t *testing.T) {
	items := []store.Item{
		item("arxiv:2401.00001", "2024-01-01T10:00:00Z"),
		item("arxiv:2401.00003", "2024-01-03T10:00:00Z"),
		item("arxiv:2401.00002", "2024-01-02T10:00:00Z"),
	}
	got := Sort(items)
	want := []string{"arxiv:2401.00003", "arxiv:2401.00002", "arxiv:2401.00001"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %s, want %s (order %v)", i, got[i].ID, id, ids(got))
		}
	}
	// Input untouched.
	if items[0].ID != "arxiv:2401.00001" {
		t.Error("Sort mutated its input")
	}
}

func TestSortTieBreakByID(t *testing.T) {
	items := []store.Item{
		item("arxiv:2401.00001", "2024-01-01T10:00:00Z"),
		item("arxiv:2401.00009", "2024-01-01T10:00:00Z"),
		item("arxiv:2401.00005", "2024-01-01T10:00:00Z"),
	}
	got := Sort(items)
	want := []string{"arxiv:2401.00009", "arxiv:2401.00005", "arxiv:2401.00001"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("tie-break order wrong: %v", ids(got))
		}
	}
}

func TestSortIdempotent(t *testing.T) {
	items := []store.Item{
		item("b", "2024-01-02T00:00:00Z"),
		item("a", ""),
		item("c", "2024-01-02T00:00:00Z"),
		item("d", "2023-12-31T00:00:00Z"),
	}
	once := Sort(items)
	twice := Sort(once)
	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Fatalf("sort not idempotent: %v vs %v", ids(once), ids(twice))
		}
	}
	// Absent timestamps sort last.
	if twice[len(twice)-1].ID != "a" {
		t.Errorf("expected empty published_at last, got %v", ids(twice))
	}
}

func TestComputeNew(t *testing.T) {
	items := []store.Item{
		item("arxiv:1111.1111", "2024-01-01T00:00:00Z"),
		item("arxiv:2222.2222", "2024-01-02T00:00:00Z"),
	}

	got := ComputeNew(items, store.State{})
	if len(got) != 2 {
		t.Fatalf("empty state: expected all items new, got %d", len(got))
	}

	st := store.State{SeenIDs: []string{"arxiv:1111.1111"}}
	got = ComputeNew(items, st)
	if len(got) != 1 || got[0].ID != "arxiv:2222.2222" {
		t.Fatalf("expected only unseen item, got %v", ids(got))
	}

	st = store.State{SeenIDs: []string{"arxiv:1111.1111", "arxiv:2222.2222"}}
	if got = ComputeNew(items, st); len(got) != 0 {
		t.Fatalf("all seen: expected none, got %v", ids(got))
	}
}

func TestFilterByLookbackDisabled(t *testing.T) {
	items := []store.Item{
		item("old", "2010-01-01T00:00:00Z"),
		item("odd", "not-a-timestamp"),
	}
	got := FilterByLookback(items, 0, time.Now())
	if len(got) != 2 {
		t.Fatalf("lookback 0 must be the identity, got %v", ids(got))
	}
}

func TestFilterByLookbackWindow(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	items := []store.Item{
		item("in", "2024-01-30T00:00:00Z"),
		item("boundary", "2024-01-25T00:00:00Z"), // exactly 7 days old
		item("out", "2024-01-01T00:00:00Z"),      // 31 days old
		item("missing", ""),
		item("unparseable", "yesterday"),
	}
	got := FilterByLookback(items, 7, now)
	want := map[string]bool{"in": true, "boundary": true, "missing": true, "unparseable": true}
	if len(got) != 4 {
		t.Fatalf("expected 4 kept, got %v", ids(got))
	}
	for _, it := range got {
		if !want[it.ID] {
			t.Errorf("unexpected item kept: %s", it.ID)
		}
	}
}

func TestResolveCountsSkipped(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	items := []store.Item{
		item("arxiv:2401.30000", "2024-01-30T00:00:00Z"),
		item("arxiv:2401.00001", "2024-01-01T00:00:00Z"),
	}
	res := Resolve(items, store.State{}, 7, now)
	if len(res.NewItems) != 2 || len(res.Items) != 1 || res.SkippedCount != 1 {
		t.Fatalf("unexpected resolution: new=%d items=%d skipped=%d",
			len(res.NewItems), len(res.Items), res.SkippedCount)
	}
	if res.Items[0].ID != "arxiv:2401.30000" {
		t.Errorf("unexpected included item %s", res.Items[0].ID)
	}
}

func TestNextStateMarksAllWithoutLookback(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	items := []store.Item{item("arxiv:1111.1111", "2024-01-01T00:00:00Z")}
	res := Resolve(items, store.State{}, 0, now)

	next := NextState(store.State{}, res, 0, false)
	if len(next.SeenIDs) != 1 || next.SeenIDs[0] != "arxiv:1111.1111" {
		t.Fatalf("unexpected seen ids %v", next.SeenIDs)
	}
	if next.LastRunDateJST != DateJST(now) {
		t.Errorf("unexpected run date %q", next.LastRunDateJST)
	}
}

func TestNextStateLeavesSkippedUnseen(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	items := []store.Item{
		item("arxiv:2401.30000", "2024-01-30T00:00:00Z"),
		item("arxiv:2401.00001", "2024-01-01T00:00:00Z"), // 31 days old, filtered
	}
	res := Resolve(items, store.State{}, 7, now)

	next := NextState(store.State{}, res, 7, false)
	if len(next.SeenIDs) != 1 || next.SeenIDs[0] != "arxiv:2401.30000" {
		t.Fatalf("expected only the included item marked, got %v", next.SeenIDs)
	}

	// With mark_skipped_as_seen the filtered item is marked too.
	next = NextState(store.State{}, res, 7, true)
	if len(next.SeenIDs) != 2 {
		t.Fatalf("expected both items marked, got %v", next.SeenIDs)
	}
}

func TestNextStateUnionSortedNeverShrinks(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	prior := store.State{LastRunDateJST: "2024-01-01", SeenIDs: []string{"arxiv:zzzz.0001", "arxiv:aaaa.0001"}}
	items := []store.Item{item("arxiv:mmmm.0001", "2024-01-01T00:00:00Z")}
	res := Resolve(items, prior, 0, now)

	next := NextState(prior, res, 0, false)
	want := []string{"arxiv:aaaa.0001", "arxiv:mmmm.0001", "arxiv:zzzz.0001"}
	if len(next.SeenIDs) != len(want) {
		t.Fatalf("unexpected seen ids %v", next.SeenIDs)
	}
	for i, id := range want {
		if next.SeenIDs[i] != id {
			t.Fatalf("expected sorted union %v, got %v", want, next.SeenIDs)
		}
	}
}

func TestNextStateIdempotentForSeenItems(t *testing.T) {
	now := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	st := store.State{LastRunDateJST: "2024-01-02", SeenIDs: []string{"arxiv:1111.1111"}}
	items := []store.Item{item("arxiv:1111.1111", "2024-01-01T00:00:00Z")}

	res := Resolve(items, st, 0, now)
	if len(res.NewItems) != 0 {
		t.Fatalf("expected nothing new, got %v", ids(res.NewItems))
	}
	next := NextState(st, res, 0, false)
	if len(next.SeenIDs) != 1 {
		t.Errorf("seen set changed: %v", next.SeenIDs)
	}
}

func TestDateJST(t *testing.T) {
	// 20:00 UTC is 05:00 JST the next day.
	now := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	if got := DateJST(now); got != "2024-01-02" {
		t.Errorf("DateJST = %q, want 2024-01-02", got)
	}
	// 10:00 UTC is 19:00 JST the same day.
	now = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if got := DateJST(now); got != "2024-01-01" {
		t.Errorf("DateJST = %q, want 2024-01-01", got)
	}
}
