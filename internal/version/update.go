package version

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const apiBase = "https://api.github.com/repos/"

// UpdateInfo contains information about available updates.
type UpdateInfo struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateAvailable bool
	Error           error
}

// GitHubRelease represents the GitHub API response for releases.
type GitHubRelease struct {
	TagName string `json:"tag_name"`
}

// Checker looks up the latest published version.
type Checker struct {
	// BaseURL is the repository API root, e.g. https://api.github.com/repos/owner/name
	BaseURL string
	Client  *http.Client
}

// NewChecker returns a Checker for this repository.
func NewChecker() *Checker {
	return &Checker{
		BaseURL: apiBase + Repository,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// CheckForUpdate checks GitHub for the latest release version.
func CheckForUpdate(ctx context.Context) UpdateInfo {
	return NewChecker().Check(ctx, Version)
}

// Check compares current against the latest release, falling back to tags
// when the repository has no releases.
func (c *Checker) Check(ctx context.Context, current string) UpdateInfo {
	info := UpdateInfo{CurrentVersion: current}

	var release GitHubRelease
	status, err := c.getJSON(ctx, "/releases/latest", &release)
	if err != nil {
		info.Error = err
		return info
	}
	if status != http.StatusOK {
		return c.checkTags(ctx, info)
	}

	info.LatestVersion = normalizeVersion(release.TagName)
	info.UpdateAvailable = isNewerVersion(info.LatestVersion, info.CurrentVersion)
	return info
}

func (c *Checker) checkTags(ctx context.Context, info UpdateInfo) UpdateInfo {
	var tags []GitHubRelease
	status, err := c.getJSON(ctx, "/tags", &tags)
	if err != nil {
		info.Error = err
		return info
	}
	if status != http.StatusOK {
		info.Error = fmt.Errorf("failed to check for updates: status %d", status)
		return info
	}
	if len(tags) == 0 {
		info.LatestVersion = info.CurrentVersion
		return info
	}

	// Tags are returned newest first
	info.LatestVersion = normalizeVersion(tags[0].TagName)
	info.UpdateAvailable = isNewerVersion(info.LatestVersion, info.CurrentVersion)
	return info
}

// getJSON decodes the body only for 200 responses.
func (c *Checker) getJSON(ctx context.Context, path string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.BaseURL, "/")+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to check for updates: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to check for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to parse update response: %w", err)
	}
	return resp.StatusCode, nil
}

// normalizeVersion strips the "v" prefix if present.
func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// isNewerVersion compares dotted numeric versions part by part.
func isNewerVersion(latest, current string) bool {
	latestParts := strings.Split(latest, ".")
	currentParts := strings.Split(current, ".")

	for i := 0; i < len(latestParts) && i < len(currentParts); i++ {
		var latestNum, currentNum int
		fmt.Sscanf(latestParts[i], "%d", &latestNum)
		fmt.Sscanf(currentParts[i], "%d", &currentNum)

		if latestNum > currentNum {
			return true
		} else if latestNum < currentNum {
			return false
		}
	}

	return len(latestParts) > len(currentParts)
}

// InstallCommand returns the command to update the application.
func InstallCommand() string {
	return "go install github.com/" + Repository + "/cmd/segment-switch@latest"
}
