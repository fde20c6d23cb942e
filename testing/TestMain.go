package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("HARBORLINE_TEST_MODE", "1")
		if os.Getenv("MIGRATE_ON_START") == "" {
			_ = os.Setenv("MIGRATE_ON_START", "false")
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
