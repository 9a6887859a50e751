package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("UDMS_TEST_MODE", "1")
		if os.Getenv("SESSION_SECRET") == "" {
			_ = os.Setenv("SESSION_SECRET", "test-session-secret")
		}
		if os.Getenv("ASSISTANT_URL") != "" {
			_ = os.Unsetenv("ASSISTANT_URL")
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain forces test mode so packages that import this one never reach
// Redis or the assistant collaborator.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
