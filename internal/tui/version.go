package tui

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// versionCheckMsg reports a newer folio release. latest is empty when the
// running build is current or the check failed.
type versionCheckMsg struct {
	latest string
	url    string
}

var releaseURL = "https://api.github.com/repos/naveenspark/folio/releases/latest"

const versionCheckTimeout = 5 * time.Second

type release struct {
	TagName    string `json:"tag_name"`
	HTMLURL    string `json:"html_url"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// checkVersion looks up the latest published release in the background.
// Development builds never check.
func checkVersion(current string) tea.Cmd {
	if current == "" || current == "dev" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), versionCheckTimeout)
		defer cancel()
		rel, err := fetchRelease(ctx)
		if err != nil || rel.Draft || rel.Prerelease {
			return versionCheckMsg{}
		}
		if !parseSemver(rel.TagName).newerThan(parseSemver(current)) {
			return versionCheckMsg{}
		}
		return versionCheckMsg{latest: "v" + strings.TrimPrefix(rel.TagName, "v"), url: rel.HTMLURL}
	}
}

func fetchRelease(ctx context.Context) (*release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releaseURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return nil, &http.ProtocolError{ErrorString: resp.Status}
	}
	var rel release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// semver is major.minor.patch; pre marks a pre-release build such as
// 1.2.0-rc.1, which sorts before 1.2.0.
type semver struct {
	parts [3]int
	pre   bool
}

func parseSemver(v string) semver {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	var s semver
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		s.pre = v[i] == '-'
		v = v[:i]
	}
	for i, p := range strings.SplitN(v, ".", 3) {
		s.parts[i], _ = strconv.Atoi(p) //nolint:errcheck
	}
	return s
}

func (s semver) newerThan(o semver) bool {
	for i := range s.parts {
		if s.parts[i] != o.parts[i] {
			return s.parts[i] > o.parts[i]
		}
	}
	return o.pre && !s.pre
}
