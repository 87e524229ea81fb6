package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matheuskafuri/paperpress/internal/render"
	"github.com/matheuskafuri/paperpress/internal/store"
)

var (
	// Adaptive colors for dark/light terminals
	colorPrimary   = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	colorSecondary = lipgloss.AdaptiveColor{Light: "#3D3D3D", Dark: "#ABABAB"}
	colorDim       = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#626262"}
	colorAccent    = lipgloss.AdaptiveColor{Light: "#F25D94", Dark: "#F25D94"}

	latestTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorPrimary)

	latestPathStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Italic(true)

	latestHeadlineStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colorAccent)

	latestBodyStyle = lipgloss.NewStyle().
			Foreground(colorSecondary)
)

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the most recent issue",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadStage()
		if err != nil {
			return err
		}
		dates, err := render.IssueDates(st.paths.IssuesDir)
		if err != nil {
			return err
		}
		if len(dates) == 0 {
			fmt.Println("No issues yet.")
			return nil
		}
		file, err := store.LoadSummaries(st.paths.Summaries)
		if err != nil {
			return err
		}
		date := dates[0]
		path := filepath.Join(st.paths.IssuesDir, date+".md")
		fmt.Println(renderLatest(date, path, file.Issues[date]))
		return nil
	},
}

// renderLatest formats the preview: the issue date and path, then the digest
// headline and lede when the day has one, else the trend summary.
func renderLatest(date, path string, notes *store.IssueNotes) string {
	var b strings.Builder
	b.WriteString(latestTitleStyle.Render("Issue " + date))
	b.WriteString("\n")
	b.WriteString(latestPathStyle.Render(path))
	b.WriteString("\n")

	var digest *store.Digest
	var trend *store.Trend
	if notes != nil {
		digest, trend = notes.Digest, notes.Trend
	}
	switch {
	case digest != nil && (digest.Headline != "" || digest.Lede != ""):
		b.WriteString("\n")
		if digest.Headline != "" {
			b.WriteString(latestHeadlineStyle.Render(digest.Headline))
			b.WriteString("\n")
		}
		if digest.Lede != "" {
			b.WriteString(latestBodyStyle.Render(digest.Lede))
			b.WriteString("\n")
		}
		for i, h := range digest.Highlights {
			if i == 3 {
				break
			}
			b.WriteString(latestBodyStyle.Render("- " + h))
			b.WriteString("\n")
		}
	case trend != nil && trend.TrendSummary != "":
		b.WriteString("\n")
		b.WriteString(latestBodyStyle.Render(trend.TrendSummary))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
