package store

import "strings"

// Item is one normalized arXiv entry. IDs are prefixed with the source
// ("arxiv:2401.01234") so items from different feeds can never collide.
type Item struct {
	ID          string   `json:"id"`
	Source      string   `json:"source"`
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	PublishedAt string   `json:"published_at"`
	Authors     []string `json:"authors"`
	Abstract    string   `json:"abstract"`
	Raw         RawMeta  `json:"raw"`
}

// RawMeta keeps feed details that the pipeline does not interpret but the
// renderer and archive want back. Queries accumulates the names of every
// configured query that returned the item, in first-appearance order.
type RawMeta struct {
	EntryID         string   `json:"entry_id"`
	PDFURL          string   `json:"pdf_url,omitempty"`
	Categories      []string `json:"categories"`
	PrimaryCategory string   `json:"primary_category,omitempty"`
	Queries         []string `json:"queries,omitempty"`
}

// AbstractExcerpt returns the first sentence of the abstract, capped at 220
// characters, as a fallback when no LLM one-liner exists.
func (it Item) AbstractExcerpt() string {
	return firstSentence(it.Abstract, 220)
}

func firstSentence(text string, maxLen int) string {
	cleaned := strings.Join(strings.Fields(text), " ")
	if cleaned == "" {
		return ""
	}
	for _, sep := range []string{". ", "? ", "! "} {
		if i := strings.Index(cleaned, sep); i >= 0 {
			cleaned = cleaned[:i+1]
			break
		}
	}
	runes := []rune(cleaned)
	if len(runes) > maxLen {
		cleaned = strings.TrimRight(string(runes[:maxLen-1]), " ") + "…"
	}
	return cleaned
}

// State tracks which item IDs have already appeared in an issue. The seen
// set only ever grows; it is serialized as a sorted list.
type State struct {
	LastRunDateJST string   `json:"last_run_date_jst"`
	SeenIDs        []string `json:"seen_ids"`
}

// Seen returns the seen set as a map for membership checks.
func (s State) Seen() map[string]bool {
	seen := make(map[string]bool, len(s.SeenIDs))
	for _, id := range s.SeenIDs {
		seen[id] = true
	}
	return seen
}

// Summary is a cached per-item LLM annotation.
type Summary struct {
	OneLiner string   `json:"one_liner"`
	WhatsNew []string `json:"whats_new"`
	Provider string   `json:"provider,omitempty"`
	Model    string   `json:"model,omitempty"`
}

// Trend is a cached per-date cross-paper synthesis.
type Trend struct {
	TrendSummary string   `json:"trend_summary"`
	Themes       []string `json:"themes"`
	Keywords     []string `json:"keywords"`
	Provider     string   `json:"provider,omitempty"`
	Model        string   `json:"model,omitempty"`
}

// Digest is a cached per-date newspaper-style digest. FeaturedIDs only ever
// holds IDs that existed in the item set the digest was computed from.
type Digest struct {
	Headline    string   `json:"headline"`
	Lede        string   `json:"lede"`
	Highlights  []string `json:"highlights"`
	Themes      []string `json:"themes"`
	Keywords    []string `json:"keywords"`
	FeaturedIDs []string `json:"featured_ids"`
	Provider    string   `json:"provider,omitempty"`
	Model       string   `json:"model,omitempty"`
}

// IssueNotes groups the per-date annotations.
type IssueNotes struct {
	Trend  *Trend  `json:"trend,omitempty"`
	Digest *Digest `json:"digest,omitempty"`
}

// SummaryFile is the on-disk summary cache. Both maps are append-only:
// a key, once written, is never recomputed or removed.
type SummaryFile struct {
	Summaries map[string]Summary     `json:"summaries"`
	Issues    map[string]*IssueNotes `json:"issues"`
}

// NewSummaryFile returns an empty cache with initialized maps.
func NewSummaryFile() SummaryFile {
	return SummaryFile{
		Summaries: make(map[string]Summary),
		Issues:    make(map[string]*IssueNotes),
	}
}

// TrendFor returns the trend recorded for date, or nil.
func (f *SummaryFile) TrendFor(date string) *Trend {
	if notes := f.Issues[date]; notes != nil {
		return notes.Trend
	}
	return nil
}

// DigestFor returns the digest recorded for date, or nil.
func (f *SummaryFile) DigestFor(date string) *Digest {
	if notes := f.Issues[date]; notes != nil {
		return notes.Digest
	}
	return nil
}

func (f *SummaryFile) SetTrend(date string, tr Trend) {
	f.notes(date).Trend = &tr
}

func (f *SummaryFile) SetDigest(date string, d Digest) {
	f.notes(date).Digest = &d
}

func (f *SummaryFile) notes(date string) *IssueNotes {
	if f.Issues == nil {
		f.Issues = make(map[string]*IssueNotes)
	}
	notes := f.Issues[date]
	if notes == nil {
		notes = &IssueNotes{}
		f.Issues[date] = notes
	}
	return notes
}
