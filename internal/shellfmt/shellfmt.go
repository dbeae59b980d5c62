// Package shellfmt renders ext2fs inode attributes the way the
// interactive shell prints them: permission strings, human-readable
// sizes, and local wall-clock timestamps.
package shellfmt

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/kcodes/ext2shell/internal/ext2fs"
)

// Mode renders a mode word as a ten-character ls-style string:
// type letter followed by rwxrwxrwx permission bits.
func Mode(mode uint16, kind ext2fs.Kind) string {
	b := []byte("----------")
	switch kind {
	case ext2fs.KindDirectory:
		b[0] = 'd'
	case ext2fs.KindSymlink:
		b[0] = 'l'
	}
	bits := []struct {
		mask uint16
		pos  int
		c    byte
	}{
		{0400, 1, 'r'}, {0200, 2, 'w'}, {0100, 3, 'x'},
		{0040, 4, 'r'}, {0020, 5, 'w'}, {0010, 6, 'x'},
		{0004, 7, 'r'}, {0002, 8, 'w'}, {0001, 9, 'x'},
	}
	for _, e := range bits {
		if mode&e.mask != 0 {
			b[e.pos] = e.c
		}
	}
	return string(b)
}

// Size renders a byte count in binary units (KiB/MiB).
func Size(n uint64) string {
	return humanize.IBytes(n)
}

// Time renders an ext2 epoch timestamp as a local wall-clock string,
// or "N/A" for the zero timestamp.
func Time(t uint32) string {
	if t == 0 {
		return "N/A"
	}
	return time.Unix(int64(t), 0).Local().Format("02/01/2006 15:04:05")
}

// FileType renders a directory-entry file_type byte as a one-letter tag.
func FileType(ft uint8) string {
	switch ft {
	case ext2fs.FtDir:
		return "d"
	case ext2fs.FtSymlink:
		return "l"
	case ext2fs.FtRegFile:
		return "-"
	default:
		return "?"
	}
}
