package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matheuskafuri/paperpress/internal/archive"
)

// defaultRetention bounds prune when --older-than is not given. Papers keep
// their value longer than news posts, so the window is a full year.
const defaultRetention = 365 * 24 * time.Hour

var flagPruneOlderThan string

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old papers from the local archive",
	Long: `Delete archived papers published before the retention window and reclaim disk space.

Prunes papers older than one year unless overridden with --older-than.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadStage()
		if err != nil {
			return err
		}
		if !st.cfg.Archive.Enabled {
			return fmt.Errorf("archive is disabled in config")
		}

		db, err := archive.Open(st.paths.Archive)
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		defer db.Close()

		retention := defaultRetention
		if flagPruneOlderThan != "" {
			d, err := parseRetention(flagPruneOlderThan)
			if err != nil {
				return fmt.Errorf("invalid --older-than value: %w", err)
			}
			retention = d
		}

		deleted, err := db.Prune(retention)
		if err != nil {
			return fmt.Errorf("pruning: %w", err)
		}

		if deleted == 0 {
			fmt.Println("Nothing to prune.")
		} else {
			fmt.Printf("Pruned %d paper(s) older than %s.\n", deleted, formatDuration(retention))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show archive statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadStage()
		if err != nil {
			return err
		}
		if !st.cfg.Archive.Enabled {
			return fmt.Errorf("archive is disabled in config")
		}

		db, err := archive.Open(st.paths.Archive)
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		defer db.Close()

		count, size, err := db.Stats(st.paths.Archive)
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		fmt.Printf("Archive: %s\n", st.paths.Archive)
		fmt.Printf("Papers: %d\n", count)
		fmt.Printf("Size: %s\n", formatBytes(size))
		if last, ok := db.LastCollect(); ok {
			fmt.Printf("Last collect: %s\n", last.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	pruneCmd.Flags().StringVar(&flagPruneOlderThan, "older-than", "", "override retention window (e.g., 30d, 720h)")
}

// parseRetention parses durations like time.ParseDuration, plus a day suffix
// ("30d") that the standard library does not accept.
func parseRetention(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
