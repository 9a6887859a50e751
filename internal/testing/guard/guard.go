// Package guard switches the process into test mode when imported for side
// effects, so cmd entrypoints return before opening listeners.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("UDMS_TEST_MODE") == "" {
			_ = os.Setenv("UDMS_TEST_MODE", "1")
		}
	})
}
