package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheuskafuri/paperpress/internal/ai"
	"github.com/matheuskafuri/paperpress/internal/issue"
	"github.com/matheuskafuri/paperpress/internal/store"
	"github.com/matheuskafuri/paperpress/internal/summary"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Annotate today's new papers with LLM summaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadStage()
		if err != nil {
			return err
		}
		return summarizeStage(cmd.Context(), st)
	},
}

func summarizeStage(ctx context.Context, st *stage) error {
	if !st.cfg.LLM.Enabled {
		st.log.Info("llm disabled, skipping summarize")
		return nil
	}
	provider, apiKey, ok := st.cfg.PickProvider()
	if !ok {
		st.log.Info("no llm api key in environment, skipping summarize")
		return nil
	}

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

	// Same working set the renderer will use. State stays untouched here:
	// the render stage owns the seen-ID update.
	res := issue.Resolve(items, state, st.cfg.Issue.LookbackDays, time.Now())
	if len(res.Items) == 0 {
		st.log.Info("no new papers to summarize", "date", res.Date)
		return nil
	}

	file, err := store.LoadSummaries(st.paths.Summaries)
	if err != nil {
		return err
	}

	model := st.cfg.LLMModel(provider)
	llm := ai.New(provider, apiKey, st.cfg.LLMBaseURL(provider), model, st.cfg.LLM.Temperature)
	st.log.Info("summarizing", "provider", provider, "model", model, "papers", len(res.Items))

	opts := summary.RunOpts{
		MaxItems:       st.cfg.LLM.MaxItems,
		TrendEnabled:   st.cfg.LLM.TrendEnabled,
		TrendMaxItems:  st.cfg.LLM.TrendMaxItems,
		DigestEnabled:  st.cfg.LLM.DigestEnabled,
		DigestMaxItems: st.cfg.LLM.DigestMaxItems,
		FeaturedPapers: st.cfg.Issue.FeaturedPapers,
	}
	if summary.Run(ctx, llm, res.Items, &file, res.Date, opts, st.log) {
		if _, err := store.SaveSummaries(st.paths.Summaries, file); err != nil {
			return err
		}
	}
	return nil
}
