package cmd

import "github.com/spf13/cobra"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: collect, summarize, render",
	Long:  "Run all three stages in order in one process. Equivalent to invoking collect, summarize and render back to back, sharing one config.",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadStage()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if err := collectStage(ctx, st); err != nil {
			return err
		}
		if err := summarizeStage(ctx, st); err != nil {
			return err
		}
		return renderStage(ctx, st)
	},
}
