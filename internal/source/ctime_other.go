//go:build !linux && !darwin && !windows

package source

import (
	"os"
	"time"
)

func platformCreated(string, os.FileInfo) (time.Time, bool) {
	return time.Time{}, false
}
