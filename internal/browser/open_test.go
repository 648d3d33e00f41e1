package browser

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
)

func stubStart(t *testing.T) *[]string {
	t.Helper()
	var got []string
	old := start
	start = func(cmd *exec.Cmd) error {
		got = cmd.Args
		return nil
	}
	t.Cleanup(func() { start = old })
	return &got
}

func TestOpen_UsesPlatformOpener(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("opener check only on linux and darwin")
	}
	args := stubStart(t)
	if err := Open("http://localhost:8080"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(*args) != 2 || (*args)[1] != "http://localhost:8080" {
		t.Errorf("args = %v, want opener + url", *args)
	}
}

func TestOpenFile_Missing(t *testing.T) {
	stubStart(t)
	if err := OpenFile(filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestOpenFile_Absolute(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("opener check only on linux and darwin")
	}
	args := stubStart(t)
	path := filepath.Join(t.TempDir(), "F-2026-0001.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := OpenFile(path); err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if got := (*args)[len(*args)-1]; got != path {
		t.Errorf("opened %q, want %q", got, path)
	}
}
