// Package guard flips the runtime into test mode when imported, so test
// binaries never start servers or workers as a side effect.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("GATEHOUSE_TEST_MODE") == "" {
			_ = os.Setenv("GATEHOUSE_TEST_MODE", "1")
		}
	})
}
