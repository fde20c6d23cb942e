// Package guard forces test mode when imported by test binaries.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("HARBORLINE_TEST_MODE") == "" {
			_ = os.Setenv("HARBORLINE_TEST_MODE", "1")
		}
	})
}
