package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/naveenspark/folio/internal/fakeapi"
)

// withBackend points the CLI at a fresh in-memory back-end and a private
// state directory.
func withBackend(t *testing.T) string {
	t.Helper()
	s, err := fakeapi.New(fakeapi.Options{JWTKey: "cli-test"})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	dir := t.TempDir()
	t.Setenv("FOLIO_API_URL", ts.URL)
	t.Setenv("FOLIO_WS_URL", "")
	t.Setenv("FOLIO_STORE_PATH", filepath.Join(dir, "state"))
	t.Setenv("FOLIO_LOG_PATH", filepath.Join(dir, "folio.log"))
	return filepath.Join(dir, "config.toml")
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"login", "logout", "whoami", "devserver", "version"}
	for _, name := range want {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, version) || !strings.Contains(out, "F") {
		t.Errorf("version output = %q", out)
	}
}

func TestLoginWhoamiLogout(t *testing.T) {
	cfg := withBackend(t)

	out, err := execute(t, "", "whoami", "--config", cfg)
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(out, "not logged in") {
		t.Errorf("whoami before login = %q", out)
	}

	out, err = execute(t, fakeapi.SeedAdminPassword+"\n", "login", "--config", cfg, "--email", fakeapi.SeedAdminEmail)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, fakeapi.SeedAdminEmail) || !strings.Contains(out, "admin") {
		t.Errorf("login output = %q", out)
	}

	out, err = execute(t, "", "whoami", "--config", cfg)
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if !strings.Contains(out, fakeapi.SeedAdminEmail) {
		t.Errorf("whoami after login = %q", out)
	}

	out, err = execute(t, "", "logout", "--config", cfg)
	if err != nil || !strings.Contains(out, "logged out") {
		t.Fatalf("logout = %q, %v", out, err)
	}
	out, _ = execute(t, "", "whoami", "--config", cfg)
	if !strings.Contains(out, "not logged in") {
		t.Errorf("whoami after logout = %q", out)
	}
}

func TestLoginPromptsAndRejects(t *testing.T) {
	cfg := withBackend(t)
	_, err := execute(t, fakeapi.SeedClientEmail+"\nwrong-password\n", "login", "--config", cfg, "--customer")
	if err == nil {
		t.Fatal("wrong password should fail")
	}

	out, err := execute(t, fakeapi.SeedClientEmail+"\n"+fakeapi.SeedClientPassword+"\n", "login", "--config", cfg, "--customer")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "CL-0001") {
		t.Errorf("customer login output = %q", out)
	}
}

func TestServeDevStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serveDev(ctx, zap.NewNop(), "127.0.0.1:0", fakeapi.Options{JWTKey: "dev"})
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serveDev = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serveDev did not stop")
	}
}

func TestServeDevRequiresKey(t *testing.T) {
	if err := serveDev(context.Background(), zap.NewNop(), "127.0.0.1:0", fakeapi.Options{}); err == nil {
		t.Error("missing JWT key should fail")
	}
}
