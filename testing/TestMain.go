package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

// ensureTestMode flags test mode and strips credentials for remote services
// so packages importing this one never call out of the process.
func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("ODYSSEY_TEST_MODE", "1")
		for _, key := range []string{"GENAI_API_KEY", "RATE_FEED_URL", "GOTENBERG_URL"} {
			_ = os.Unsetenv(key)
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
