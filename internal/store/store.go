package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadItems reads the collected items file. A missing file is not an error
// and yields an empty list.
func LoadItems(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return items, nil
}

// SaveItems writes the collected items file, reporting whether the content
// changed on disk.
func SaveItems(path string, items []Item) (bool, error) {
	if items == nil {
		items = []Item{}
	}
	return writeJSON(path, items)
}

// LoadState reads the seen-ID state. A missing file yields the zero state.
func LoadState(path string) (State, error) {
	var st State
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return st, nil
}

// SaveState writes the state file, reporting whether the content changed.
func SaveState(path string, st State) (bool, error) {
	if st.SeenIDs == nil {
		st.SeenIDs = []string{}
	}
	return writeJSON(path, st)
}

// LoadSummaries reads the summary cache. A missing file yields an empty
// cache with initialized maps.
func LoadSummaries(path string) (SummaryFile, error) {
	file := NewSummaryFile()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return file, nil
		}
		return file, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return NewSummaryFile(), fmt.Errorf("parsing %s: %w", path, err)
	}
	if file.Summaries == nil {
		file.Summaries = make(map[string]Summary)
	}
	if file.Issues == nil {
		file.Issues = make(map[string]*IssueNotes)
	}
	return file, nil
}

// SaveSummaries writes the summary cache, reporting whether the content
// changed.
func SaveSummaries(path string, file SummaryFile) (bool, error) {
	if file.Summaries == nil {
		file.Summaries = make(map[string]Summary)
	}
	if file.Issues == nil {
		file.Issues = make(map[string]*IssueNotes)
	}
	return writeJSON(path, file)
}

// WriteText writes content to path only when it differs from what is already
// there, creating parent directories as needed. Content is normalized to end
// with exactly the trailing newline it carries (one is added when missing),
// so a rerun with identical input performs no filesystem mutation.
func WriteText(path, content string) (bool, error) {
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	existing, err := os.ReadFile(path)
	if err == nil && string(existing) == content {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}

// writeJSON marshals v with two-space indentation. Map keys marshal in
// sorted order and struct fields in declaration order, so output is
// deterministic and the change check is meaningful.
func writeJSON(path string, v any) (bool, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encoding %s: %w", path, err)
	}
	return WriteText(path, string(data))
}
