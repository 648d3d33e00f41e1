package browser

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// start launches the opener; replaced in tests.
var start = func(cmd *exec.Cmd) error { return cmd.Start() }

// Open opens the specified URL in the user's default browser.
func Open(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return start(exec.Command("open", url))
	case "linux":
		return start(exec.Command("xdg-open", url))
	case "windows":
		return start(exec.Command("rundll32", "url.dll,FileProtocolHandler", url))
	default:
		return fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
}

// OpenFile opens a local file, such as an exported invoice PDF, with the
// default viewer for its type.
func OpenFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("browser.OpenFile: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("browser.OpenFile: %w", err)
	}
	return Open(abs)
}
