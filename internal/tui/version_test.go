package tui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSemverNewerThan(t *testing.T) {
	tests := []struct {
		latest  string
		current string
		want    bool
	}{
		{"1.0.1", "1.0.0", true},
		{"1.1.0", "1.0.9", true},
		{"2.0.0", "1.9.9", true},
		{"v1.0.1", "v1.0.0", true},
		{"1.0.0", "1.0.0", false},
		{"1.0.0", "1.0.1", false},
		{"0.9.0", "1.0.0", false},
		{"1.2.0", "1.2.0-rc.1", true},
		{"1.2.0-rc.2", "1.2.0", false},
		{"1.2.0+build.7", "1.2.0", false},
		{"dev", "dev", false},
	}
	for _, tc := range tests {
		t.Run(tc.latest+"_vs_"+tc.current, func(t *testing.T) {
			got := parseSemver(tc.latest).newerThan(parseSemver(tc.current))
			if got != tc.want {
				t.Errorf("%q newer than %q = %v, want %v", tc.latest, tc.current, got, tc.want)
			}
		})
	}
}

func TestCheckVersionSkipsDevBuilds(t *testing.T) {
	if cmd := checkVersion("dev"); cmd != nil {
		t.Error("expected nil cmd for dev build")
	}
	if cmd := checkVersion(""); cmd != nil {
		t.Error("expected nil cmd for empty version")
	}
}

func withReleaseServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	old := releaseURL
	releaseURL = srv.URL
	t.Cleanup(func() { releaseURL = old })
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		name       string
		rel        release
		status     int
		wantLatest string
	}{
		{"newer", release{TagName: "v0.5.0", HTMLURL: "https://example.test/v0.5.0"}, http.StatusOK, "v0.5.0"},
		{"untagged prefix", release{TagName: "0.5.1"}, http.StatusOK, "v0.5.1"},
		{"same", release{TagName: "v0.4.0"}, http.StatusOK, ""},
		{"prerelease ignored", release{TagName: "v0.6.0-rc.1", Prerelease: true}, http.StatusOK, ""},
		{"draft ignored", release{TagName: "v0.6.0", Draft: true}, http.StatusOK, ""},
		{"not found", release{}, http.StatusNotFound, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			withReleaseServer(t, func(w http.ResponseWriter, r *http.Request) {
				if tc.status != http.StatusOK {
					w.WriteHeader(tc.status)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(tc.rel) //nolint:errcheck
			})

			msg := checkVersion("0.4.0")().(versionCheckMsg)
			if msg.latest != tc.wantLatest {
				t.Errorf("latest = %q, want %q", msg.latest, tc.wantLatest)
			}
			if msg.url != tc.rel.HTMLURL && tc.wantLatest != "" {
				t.Errorf("url = %q, want %q", msg.url, tc.rel.HTMLURL)
			}
		})
	}
}

func TestVersionNoticeInHeader(t *testing.T) {
	a := signedInApp(t, testAdmin)
	m, _ := a.Update(versionCheckMsg{latest: "v9.9.9"})
	if got := m.(App).View(); !strings.Contains(got, "folio v9.9.9 available") {
		t.Error("update notice missing from header")
	}
}
