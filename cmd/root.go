package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/matheuskafuri/paperpress/internal/config"
	"github.com/matheuskafuri/paperpress/internal/logging"
	"github.com/matheuskafuri/paperpress/internal/update"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "paperpress",
	Short: "Daily arXiv digest generator",
	Long:  "paperpress collects new arXiv papers for the topics you follow, annotates them with LLM summaries, and publishes a dated markdown issue plus an index.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	versionCmd.Flags().BoolVar(&flagVersionCheck, "check", false, "check GitHub for a newer release")

	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

var flagVersionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("paperpress %s (commit: %s, built: %s)\n", version, commit, date)
		if !flagVersionCheck {
			return
		}
		if rel := update.Check(cmd.Context(), version); rel != nil {
			fmt.Printf("Update available: %s (%s)\n", rel.Version, rel.URL)
		} else {
			fmt.Println("You're up to date.")
		}
	},
}

// stage bundles everything a pipeline command needs: the loaded config, the
// resolved data/output paths, and the logger.
type stage struct {
	cfg   *config.Config
	paths config.Paths
	log   *slog.Logger
}

func loadStage() (*stage, error) {
	path := config.ResolvePath(flagConfig)
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &stage{
		cfg:   cfg,
		paths: cfg.PathsFrom(path),
		log:   logging.New(cfg.LogLevel),
	}, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
