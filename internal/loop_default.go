package internal

import "sync"

var (
	once        sync.Once
	defaultLoop *Loop
)

// GetLoop returns the process-wide loop shared by scopes that were not given
// a scheduler. Its tasks only run once the host serves or drains it.
func GetLoop() *Loop {
	once.Do(func() {
		defaultLoop = NewLoop()
	})

	return defaultLoop
}
