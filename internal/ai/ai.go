// Package ai talks to an OpenAI-compatible chat completions API to
// produce per-paper one-liners, a daily trend note and a daily digest.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/matheuskafuri/paperpress/internal/store"
)

const (
	itemTimeout   = 60 * time.Second
	trendTimeout  = 90 * time.Second
	digestTimeout = 120 * time.Second
)

const (
	itemSystem   = "You summarize arXiv papers concisely and precisely."
	trendSystem  = "You infer daily research trends from paper titles and abstracts."
	digestSystem = "You produce structured daily research digests from paper titles and abstracts."
)

const itemPrompt = `Return ONLY a JSON object with this schema:
{ "one_liner": string, "whats_new": string[] }
Constraints:
- one_liner: <= 200 chars, plain text.
- whats_new: 2-5 bullet-like strings, each <= 120 chars, plain text.
- No markdown, no extra keys.

Title: %s
Authors: %s
Abstract: %s
`

const trendPrompt = `Return ONLY a JSON object with this schema:
{ "trend_summary": string, "themes": string[], "keywords": string[] }
Constraints:
- trend_summary: 2-4 sentences, plain text. If the set spans multiple research areas, mention that explicitly.
- themes: 3-6 short phrases. Prefer prefixing each theme with a short tag like 'Materials:' or 'AI:' when helpful.
- keywords: 6-12 keywords/phrases.
- No markdown, no extra keys.

Guidance:
- The paper set may mix domains (e.g., materials/physics simulation and AI/LLM work). Reflect that without forcing a fixed balance.
- Base tags on the paper titles/abstracts (and any category hints visible).

Papers:
`

const digestPrompt = `You are writing a concise daily research newspaper for a technical reader.
The paper set may mix domains (e.g., materials/physics simulation and AI/LLM work).
Use the provided Query and Category hints when helpful, but do not assume any fixed set of queries.
Return ONLY a JSON object with this schema:
{
  "headline": string,
  "lede": string,
  "highlights": string[],
  "themes": string[],
  "keywords": string[],
  "featured_ids": string[]
}
Constraints:
- headline: <= 90 chars, plain text.
- lede: 2-4 sentences, plain text.
- highlights: 4-7 short bullet-like strings.
- themes: 3-6 short phrases. Prefer prefixing each theme with a short tag like 'Materials:' or 'AI:' when helpful.
- keywords: 6-12 keywords/phrases.
- featured_ids: pick up to %d IDs from the list (use IDs exactly; no invented IDs).
- No markdown, no extra keys.

Selection guidance:
- If multiple domains or queries are present, try to make featured_ids diverse across them when possible (no strict quota).
Papers:
`

// Client calls one configured provider endpoint. All three call shapes
// share the same transport; the caller decides what to do with failures.
type Client struct {
	provider    string
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
}

func New(provider, apiKey, baseURL, model string, temperature float64) *Client {
	return &Client{
		provider:    provider,
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		httpClient:  &http.Client{},
	}
}

// SummarizeItem asks for a one-liner plus what's-new bullets for a single
// paper. An empty one-liner in the reply falls back to the first sentence
// of the abstract.
func (c *Client) SummarizeItem(ctx context.Context, item store.Item) (store.Summary, error) {
	prompt := fmt.Sprintf(itemPrompt, item.Title, strings.Join(item.Authors, ", "), item.Abstract)
	text, err := c.call(ctx, itemSystem, prompt, itemTimeout)
	if err != nil {
		return store.Summary{}, err
	}
	data := extractObject(text)
	if data == nil {
		return store.Summary{}, fmt.Errorf("llm returned non-JSON content")
	}

	oneLiner := asString(data, "one_liner")
	if oneLiner == "" {
		oneLiner = item.AbstractExcerpt()
	}
	return store.Summary{
		OneLiner: oneLiner,
		WhatsNew: asStringList(data, "whats_new", 0),
		Provider: c.provider,
		Model:    c.model,
	}, nil
}

// Trend asks for a cross-paper trend note over the given items.
func (c *Client) Trend(ctx context.Context, items []store.Item) (store.Trend, error) {
	parts := make([]string, 0, len(items)*2)
	for i, item := range items {
		parts = append(parts, fmt.Sprintf("%d) %s", i+1, clip(item.Title, 180)))
		parts = append(parts, "   Abstract: "+clip(item.Abstract, 700))
	}
	prompt := trendPrompt + strings.Join(parts, "\n") + "\n"

	text, err := c.call(ctx, trendSystem, prompt, trendTimeout)
	if err != nil {
		return store.Trend{}, err
	}
	data := extractObject(text)
	if data == nil {
		return store.Trend{}, fmt.Errorf("llm returned non-JSON content")
	}

	return store.Trend{
		TrendSummary: asString(data, "trend_summary"),
		Themes:       asStringList(data, "themes", 0),
		Keywords:     asStringList(data, "keywords", 0),
		Provider:     c.provider,
		Model:        c.model,
	}, nil
}

// Digest asks for the front-page digest: headline, lede, highlights and a
// featured paper selection drawn from the given items.
func (c *Client) Digest(ctx context.Context, items []store.Item, featuredCount int) (store.Digest, error) {
	if featuredCount < 1 {
		featuredCount = 1
	}

	parts := make([]string, 0, len(items)*5)
	for i, item := range items {
		parts = append(parts, fmt.Sprintf("%d) ID: %s", i+1, item.ID))
		parts = append(parts, "   Title: "+clip(item.Title, 200))
		if item.Raw.PrimaryCategory != "" {
			parts = append(parts, "   Category: "+item.Raw.PrimaryCategory)
		}
		if tags := queryTags(item); len(tags) > 0 {
			parts = append(parts, "   Query: "+strings.Join(tags, ", "))
		}
		parts = append(parts, "   Abstract: "+clip(item.Abstract, 800))
	}
	prompt := fmt.Sprintf(digestPrompt, featuredCount) + strings.Join(parts, "\n") + "\n"

	text, err := c.call(ctx, digestSystem, prompt, digestTimeout)
	if err != nil {
		return store.Digest{}, err
	}
	data := extractObject(text)
	if data == nil {
		return store.Digest{}, fmt.Errorf("llm returned non-JSON content")
	}

	d := store.Digest{
		Headline:    asString(data, "headline"),
		Lede:        asString(data, "lede"),
		Highlights:  asStringList(data, "highlights", 7),
		Themes:      asStringList(data, "themes", 6),
		Keywords:    asStringList(data, "keywords", 12),
		FeaturedIDs: asStringList(data, "featured_ids", featuredCount),
		Provider:    c.provider,
		Model:       c.model,
	}
	d.FeaturedIDs = validFeatured(d.FeaturedIDs, items)
	return d, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) call(ctx context.Context, system, user string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, _ := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s API error: %w", c.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%s API %d: %s", c.provider, resp.StatusCode, string(b))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("empty %s response", c.provider)
	}
	return cr.Choices[0].Message.Content, nil
}

// extractObject pulls a JSON object out of a model reply: the whole
// string if it parses as a non-empty object, otherwise the outermost
// {...} span. Returns nil when no object can be recovered.
func extractObject(text string) map[string]any {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(text), &m); err == nil && len(m) > 0 {
		return m
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil
	}
	m = nil
	if err := json.Unmarshal([]byte(text[start:end+1]), &m); err == nil && len(m) > 0 {
		return m
	}
	return nil
}

func asString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

// asStringList reads a list field, trimming entries and dropping empties.
// max 0 means unbounded.
func asStringList(m map[string]any, key string, max int) []string {
	list, _ := m[key].([]any)
	var out []string
	for _, v := range list {
		s, _ := v.(string)
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}

// clip collapses whitespace and truncates to max runes, marking the cut
// with an ellipsis.
func clip(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimRight(string(runes[:max-1]), " ") + "…"
}

// validFeatured keeps only IDs present in the prompted item set, dropping
// duplicates while preserving first occurrence.
func validFeatured(ids []string, items []store.Item) []string {
	valid := make(map[string]bool, len(items))
	for _, it := range items {
		if it.ID != "" {
			valid[it.ID] = true
		}
	}
	var kept []string
	seen := make(map[string]bool)
	for _, id := range ids {
		if valid[id] && !seen[id] {
			kept = append(kept, id)
			seen[id] = true
		}
	}
	return kept
}

func queryTags(item store.Item) []string {
	var tags []string
	for _, q := range item.Raw.Queries {
		if q = strings.TrimSpace(q); q != "" {
			tags = append(tags, q)
		}
	}
	if len(tags) > 3 {
		tags = tags[:3]
	}
	return tags
}
