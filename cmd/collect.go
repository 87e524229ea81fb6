package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matheuskafuri/paperpress/internal/archive"
	"github.com/matheuskafuri/paperpress/internal/feed"
	"github.com/matheuskafuri/paperpress/internal/issue"
	"github.com/matheuskafuri/paperpress/internal/store"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Fetch configured arXiv queries into the collected store",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadStage()
		if err != nil {
			return err
		}
		return collectStage(cmd.Context(), st)
	},
}

func collectStage(ctx context.Context, st *stage) error {
	if len(st.cfg.Arxiv.Queries) == 0 {
		return fmt.Errorf("no arxiv queries configured")
	}

	client := feed.NewClient(st.cfg.Arxiv.UserAgent, st.log)
	batches, err := feed.FetchAll(ctx, client, st.cfg.Arxiv.Queries)
	if err != nil {
		return err
	}
	items := issue.Sort(feed.Merge(batches))

	changed, err := store.SaveItems(st.paths.Collected, items)
	if err != nil {
		return err
	}
	st.log.Debug("collected store saved", "items", len(items), "changed", changed)

	if st.cfg.Archive.Enabled {
		recordArchive(st, items)
	}

	fmt.Printf("Collected %d items → %s\n", len(items), st.paths.Collected)
	return nil
}

// recordArchive is best-effort: the JSON store is the source of truth, so a
// broken archive must never fail the collect stage.
func recordArchive(st *stage, items []store.Item) {
	db, err := archive.Open(st.paths.Archive)
	if err != nil {
		st.log.Warn("archive unavailable", "path", st.paths.Archive, "error", err)
		return
	}
	defer db.Close()

	if err := db.Record(items); err != nil {
		st.log.Warn("archiving items failed", "error", err)
		return
	}
	if err := db.SetLastCollect(); err != nil {
		st.log.Warn("stamping archive failed", "error", err)
	}
}
