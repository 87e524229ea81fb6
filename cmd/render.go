package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheuskafuri/paperpress/internal/issue"
	"github.com/matheuskafuri/paperpress/internal/render"
	"github.com/matheuskafuri/paperpress/internal/store"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write today's issue, rebuild the index, and advance the seen state",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadStage()
		if err != nil {
			return err
		}
		return renderStage(cmd.Context(), st)
	},
}

func renderStage(ctx context.Context, st *stage) error {
	items, err := store.LoadItems(st.paths.Collected)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("no collected items at %s, run collect first", st.paths.Collected)
	}

	state, err := store.LoadState(st.paths.State)
	if err != nil {
		return err
	}
	file, err := store.LoadSummaries(st.paths.Summaries)
	if err != nil {
		return err
	}

	res := issue.Resolve(items, state, st.cfg.Issue.LookbackDays, time.Now())
	issuePath := filepath.Join(st.paths.IssuesDir, res.Date+".md")

	issueChanged, err := writeIssue(issuePath, res, st, file)
	if err != nil {
		return err
	}

	dates, err := render.IssueDates(st.paths.IssuesDir)
	if err != nil {
		return err
	}
	latest := ""
	if len(dates) > 0 {
		latest = dates[0]
	}
	indexChanged, err := store.WriteText(st.paths.Index, render.Index(latest, dates))
	if err != nil {
		return err
	}

	next := issue.NextState(state, res, st.cfg.Issue.LookbackDays, st.cfg.Issue.MarkSkippedAsSeen)
	stateChanged, err := store.SaveState(st.paths.State, next)
	if err != nil {
		return err
	}

	fmt.Printf("Issue %s: %d included / %d unseen (issue_changed=%t, index_changed=%t, state_changed=%t)\n",
		res.Date, len(res.Items), len(res.NewItems), issueChanged, indexChanged, stateChanged)
	return nil
}

// writeIssue creates the day's issue file, or appends to it when a file for
// the date already exists. An existing issue is never rebuilt, so annotations
// and items published earlier in the day survive later runs.
func writeIssue(path string, res issue.Resolution, st *stage, file store.SummaryFile) (bool, error) {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err == nil {
		if len(res.Items) == 0 {
			return false, nil
		}
		content := string(existing)
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		sections := render.ItemSections(res.Items, file.Summaries)
		return store.WriteText(path, content+"\n"+sections)
	}

	md := render.Issue(render.IssueData{
		Date:         res.Date,
		Queries:      st.cfg.Arxiv.Queries,
		Items:        res.Items,
		Summaries:    file.Summaries,
		Trend:        file.TrendFor(res.Date),
		LookbackDays: st.cfg.Issue.LookbackDays,
		SkippedCount: res.SkippedCount,
	})
	return store.WriteText(path, md)
}
