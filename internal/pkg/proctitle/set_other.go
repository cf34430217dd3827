//go:build !linux

package proctitle

import (
	"os"
	"strings"
)

// Set is best-effort off Linux: only argv[0] changes, which some
// process listings pick up.
func Set(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}
	if len(os.Args) > 0 {
		os.Args[0] = title
	}
	return nil
}
