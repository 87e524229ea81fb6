package update

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

var releaseURL = "https://api.github.com/repos/matheuskafuri/paperpress/releases/latest"

// Release describes a newer published version.
type Release struct {
	Version string
	URL     string
}

type ghRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Check asks the GitHub Releases API whether a newer version exists.
// Any failure, and being up to date, both return nil: an update hint is
// never worth failing a command over.
func Check(ctx context.Context, currentVersion string) *Release {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releaseURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var release ghRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	current := strings.TrimPrefix(currentVersion, "v")
	if latest == "" || latest == current {
		return nil
	}

	return &Release{Version: latest, URL: release.HTMLURL}
}
