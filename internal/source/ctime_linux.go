//go:build linux

package source

import (
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// platformCreated prefers the statx birth time. The statx result only counts
// when it describes the same inode as fi; otherwise, or when the filesystem
// keeps no birth time, the inode change time stands in.
func platformCreated(path string, fi os.FileInfo) (time.Time, bool) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok || st == nil {
		return time.Time{}, false
	}
	if t, ok := birthTime(path, st.Ino); ok {
		return t, true
	}
	return time.Unix(st.Ctim.Unix()), true
}

func birthTime(path string, ino uint64) (time.Time, bool) {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, path, unix.AT_STATX_SYNC_AS_STAT, unix.STATX_INO|unix.STATX_BTIME, &stx)
	if err != nil || stx.Mask&unix.STATX_BTIME == 0 || stx.Ino != ino {
		return time.Time{}, false
	}
	return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec)), true
}
