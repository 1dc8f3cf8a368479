package watcher

import (
	"path/filepath"
	"strings"
	"time"
)

// DefaultSettleDelay is how long a file must stay unchanged before an event fires.
const DefaultSettleDelay = 200 * time.Millisecond

// Options configures the file watcher behavior.
type Options struct {
	SettleDelay    time.Duration
	IgnorePatterns []string
}

// setDefaults applies default values to unset options.
func (o *Options) setDefaults() {
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	// Editor swap and backup files.
	if o.IgnorePatterns == nil {
		o.IgnorePatterns = []string{"*.swp", "*~", "*.tmp", ".#*"}
	}
}

// shouldIgnore checks if a path matches ignore patterns.
func (o *Options) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range o.IgnorePatterns {
		if matched, err := filepath.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return strings.HasSuffix(base, ".lock")
}
