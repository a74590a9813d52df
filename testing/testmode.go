// Package testing flips the binaries into test mode when blank-imported
// from a test file, so main packages and config loaders skip network
// side effects.
package testing

import (
	"os"
	"sync"
)

const testModeEnv = "SIMPLESDASH_TEST_MODE"

var once sync.Once

// Enable sets the test-mode flag and points external services at
// unreachable addresses. It is idempotent.
func Enable() {
	once.Do(func() {
		_ = os.Setenv(testModeEnv, "1")
		if os.Getenv("GOTENBERG_URL") == "" {
			_ = os.Setenv("GOTENBERG_URL", "http://127.0.0.1:0")
		}
	})
}

func init() {
	Enable()
}
