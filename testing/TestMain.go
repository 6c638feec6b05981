// Package testing flips the service into test mode when blank-imported by a test binary.
package testing

import (
	"os"
	"path/filepath"
	"sync"
	stdtesting "testing"
)

var once sync.Once

// testDefaults keep LoadConfig and the binaries away from real infrastructure.
var testDefaults = map[string]string{
	"AUTH_SECRET":   "test-secret",
	"GOTENBERG_URL": "http://127.0.0.1:0",
	"PRINTER_TYPE":  "none",
}

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("RXDESK_TEST_MODE", "1")
		for key, value := range testDefaults {
			if os.Getenv(key) == "" {
				_ = os.Setenv(key, value)
			}
		}
		if os.Getenv("RECEIPT_STORAGE_DIR") == "" {
			_ = os.Setenv("RECEIPT_STORAGE_DIR", filepath.Join(os.TempDir(), "rxdesk-test-receipts"))
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
