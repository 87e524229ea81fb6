// Package render produces the markdown issue pages and the site index.
package render

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/matheuskafuri/paperpress/internal/config"
	"github.com/matheuskafuri/paperpress/internal/issue"
	"github.com/matheuskafuri/paperpress/internal/store"
)

var (
	issueFileRE = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\.md$`)
	wordRE      = regexp.MustCompile(`[A-Za-z][A-Za-z0-9+\-]{2,}`)
)

// stopWords are dropped from the title keyword fallback. Generic research
// vocabulary would otherwise dominate every day's list.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"that": true, "this": true, "into": true, "using": true, "use": true,
	"via": true, "towards": true, "toward": true, "over": true, "under": true,
	"within": true, "across": true, "between": true, "based": true,
	"approach": true, "method": true, "methods": true, "model": true,
	"models": true, "learning": true, "deep": true, "machine": true,
	"neural": true, "data": true, "analysis": true, "study": true,
	"paper": true, "results": true, "new": true,
}

// IssueData is everything one issue page needs.
type IssueData struct {
	Date         string
	Queries      []config.Query
	Items        []store.Item
	Summaries    map[string]store.Summary
	Trend        *store.Trend
	LookbackDays int
	SkippedCount int
}

// Issue renders a full issue page: front matter, trend section, query
// list and grouped paper blocks.
func Issue(data IssueData) string {
	lines := []string{
		"---",
		fmt.Sprintf("title: %q", "Daily Issue (JST): "+data.Date),
		"---",
		"",
		"# Daily Issue (JST): " + data.Date,
		"",
		"## Trend",
		"",
	}

	if len(data.Items) == 0 {
		if data.SkippedCount > 0 && data.LookbackDays > 0 {
			lines = append(lines, fmt.Sprintf(
				"_No new papers within the last %d day(s) (skipped %d older unseen items)._",
				data.LookbackDays, data.SkippedCount))
		} else {
			lines = append(lines, "_No new papers in this issue._")
		}
		lines = append(lines, "")
	} else {
		lines = append(lines, trendSection(data.Trend, data.Items)...)
	}

	lines = append(lines, "## arXiv: New Papers", "")
	lines = append(lines, queryList(data.Queries)...)

	if len(data.Items) == 0 {
		return finish(lines)
	}

	groups := groupByQuery(data.Items, data.Queries)
	if len(groups) == 1 && groups[0].name == "All" {
		lines = append(lines, itemBlocks(groups[0].items, data.Summaries, 3)...)
		return finish(lines)
	}
	for _, g := range groups {
		if g.name != "All" {
			lines = append(lines, "### "+g.name, "")
		}
		lines = append(lines, itemBlocks(g.items, data.Summaries, 4)...)
	}
	return finish(lines)
}

// ItemSections renders flat level-3 paper blocks for appending to an
// issue page that already exists. Empty input renders nothing.
func ItemSections(items []store.Item, summaries map[string]store.Summary) string {
	if len(items) == 0 {
		return ""
	}
	return finish(itemBlocks(items, summaries, 3))
}

// Index renders the site index with the latest issue and the archive.
func Index(latest string, archive []string) string {
	lines := []string{
		"---",
		`title: "Daily Newspaper"`,
		"---",
		"",
		"# Daily Newspaper",
		"",
		"Automated daily arXiv digest generated by GitHub Actions.",
		"",
		"## Latest",
	}
	if latest != "" {
		lines = append(lines, issueLink(latest))
	} else {
		lines = append(lines, "_No issues yet._")
	}
	lines = append(lines, "", "## Archive")
	if len(archive) == 0 {
		lines = append(lines, "_No issues yet._", "")
		return strings.Join(lines, "\n")
	}
	for _, d := range archive {
		lines = append(lines, issueLink(d))
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// IssueDates lists issue dates found in dir, newest first. A missing
// directory is an empty archive.
func IssueDates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing issues: %w", err)
	}
	var dates []string
	for _, e := range entries {
		if e.IsDir() || !issueFileRE.MatchString(e.Name()) {
			continue
		}
		dates = append(dates, strings.TrimSuffix(e.Name(), ".md"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func issueLink(date string) string {
	return fmt.Sprintf("- [%s](issues/%s.html)", date, date)
}

func finish(lines []string) string {
	return strings.TrimRight(strings.Join(lines, "\n"), " \t\n") + "\n"
}

// trendSection renders the LLM trend note when one exists, otherwise a
// statistical fallback over categories and title keywords.
func trendSection(trend *store.Trend, items []store.Item) []string {
	var lines []string
	if trend != nil && (trend.TrendSummary != "" || len(trend.Themes) > 0) {
		if text := mdEscape(trend.TrendSummary); text != "" {
			lines = append(lines, text, "")
		}
		if len(trend.Themes) > 0 {
			lines = append(lines, "**Themes**")
			for _, t := range trend.Themes {
				if tt := mdEscape(t); tt != "" {
					lines = append(lines, "- "+tt)
				}
			}
			lines = append(lines, "")
		}
		if len(trend.Keywords) > 0 {
			lines = append(lines, "**Keywords**")
			for _, k := range trend.Keywords {
				if kk := mdEscape(k); kk != "" {
					lines = append(lines, "- "+kk)
				}
			}
			lines = append(lines, "")
		}
		return lines
	}

	if cats := topCategories(items, 5); len(cats) > 0 {
		lines = append(lines, "**Top categories**")
		for _, c := range cats {
			lines = append(lines, fmt.Sprintf("- %s (%d)", c.value, c.n))
		}
		lines = append(lines, "")
	}
	if kws := topKeywords(items, 10); len(kws) > 0 {
		lines = append(lines, "**Top keywords (titles)**")
		for _, k := range kws {
			lines = append(lines, fmt.Sprintf("- %s (%d)", k.value, k.n))
		}
		lines = append(lines, "")
	}
	return lines
}

func queryList(queries []config.Query) []string {
	if len(queries) == 0 {
		return nil
	}
	lines := []string{"**Query**"}
	for _, q := range queries {
		name := strings.TrimSpace(q.Name)
		sq := strings.TrimSpace(q.SearchQuery)
		switch {
		case name != "" && sq != "":
			lines = append(lines, fmt.Sprintf("- %s — `%s`", name, sq))
		case sq != "":
			lines = append(lines, fmt.Sprintf("- `%s`", sq))
		}
	}
	return append(lines, "")
}

func itemBlocks(items []store.Item, summaries map[string]store.Summary, level int) []string {
	if level < 1 {
		level = 1
	}
	heading := strings.Repeat("#", level)

	var lines []string
	for _, it := range items {
		title := mdEscape(it.Title)
		if title == "" {
			title = "Untitled"
		}
		url := mdEscape(it.URL)

		var authors []string
		for _, a := range it.Authors {
			if esc := mdEscape(a); esc != "" {
				authors = append(authors, esc)
			}
		}

		published := it.PublishedAt
		if len(published) > 10 {
			published = published[:10]
		}
		published = mdEscape(published)

		oneLiner := ""
		if s, ok := summaries[it.ID]; ok {
			oneLiner = mdEscape(s.OneLiner)
		}
		if oneLiner == "" {
			oneLiner = it.AbstractExcerpt()
		}

		var whatsNew []string
		if s, ok := summaries[it.ID]; ok {
			for _, b := range s.WhatsNew {
				if esc := mdEscape(b); esc != "" {
					whatsNew = append(whatsNew, esc)
				}
			}
		}

		if url != "" {
			lines = append(lines, fmt.Sprintf("%s [%s](%s)", heading, title, url))
		} else {
			lines = append(lines, heading+" "+title)
		}
		if len(authors) > 0 {
			lines = append(lines, "**Authors:** "+strings.Join(authors, ", "))
		}
		if published != "" {
			lines = append(lines, "**Published:** "+published)
		}
		if oneLiner != "" {
			lines = append(lines, "**Summary:** "+oneLiner)
		}
		if len(whatsNew) > 0 {
			lines = append(lines, "", "**What's new**")
			for _, b := range whatsNew {
				lines = append(lines, "- "+b)
			}
		}
		lines = append(lines, "")
	}
	return lines
}

type group struct {
	name  string
	items []store.Item
}

// groupByQuery buckets items under the first configured query name found
// in their raw.queries tags. Unmatched items land in a trailing Other
// bucket; with no named queries at all the whole list stays flat.
func groupByQuery(items []store.Item, queries []config.Query) []group {
	var names []string
	for _, q := range queries {
		if name := strings.TrimSpace(q.Name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return []group{{name: "All", items: items}}
	}

	grouped := make(map[string][]store.Item, len(names))
	var other []store.Item
	for _, it := range items {
		picked := ""
		for _, n := range names {
			if containsString(it.Raw.Queries, n) {
				picked = n
				break
			}
		}
		if picked != "" {
			grouped[picked] = append(grouped[picked], it)
		} else {
			other = append(other, it)
		}
	}

	var out []group
	for _, n := range names {
		if len(grouped[n]) > 0 {
			out = append(out, group{name: n, items: issue.Sort(grouped[n])})
		}
	}
	if len(other) > 0 {
		out = append(out, group{name: "Other", items: issue.Sort(other)})
	}
	return out
}

type counted struct {
	value string
	n     int
}

func topCategories(items []store.Item, limit int) []counted {
	counts := make(map[string]int)
	var order []string
	for _, it := range items {
		cat := strings.TrimSpace(it.Raw.PrimaryCategory)
		if cat == "" {
			continue
		}
		if _, ok := counts[cat]; !ok {
			order = append(order, cat)
		}
		counts[cat]++
	}
	return mostCommon(counts, order, limit)
}

func topKeywords(items []store.Item, limit int) []counted {
	counts := make(map[string]int)
	var order []string
	for _, it := range items {
		for _, word := range wordRE.FindAllString(strings.TrimSpace(it.Title), -1) {
			w := strings.ToLower(word)
			if stopWords[w] {
				continue
			}
			if _, ok := counts[w]; !ok {
				order = append(order, w)
			}
			counts[w]++
		}
	}
	return mostCommon(counts, order, limit)
}

// mostCommon sorts by count descending; equal counts keep first-seen
// order so output is stable across runs.
func mostCommon(counts map[string]int, order []string, limit int) []counted {
	out := make([]counted, 0, len(order))
	for _, v := range order {
		out = append(out, counted{value: v, n: counts[v]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].n > out[j].n })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func mdEscape(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "\r", " "))
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
