package ext2fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdealLen(t *testing.T) {
	cases := []struct {
		nameLen int
		want    int
	}{
		{0, 8},
		{1, 12},
		{4, 12},
		{5, 16},
		{255, 8 + 256},
	}
	for _, c := range cases {
		assert.Equalf(t, c.want, idealLen(c.nameLen), "idealLen(%d)", c.nameLen)
	}
}

func TestDirEntryRoundTrip(t *testing.T) {
	block := make([]byte, 64)
	in := DirEntry{Inode: 42, RecLen: 20, NameLen: 5, FileType: FtRegFile, Name: "hello"}
	encodeDirEntry(block, 0, in)

	out := decodeDirEntry(block, 0)
	assert.Equal(t, in.Inode, out.Inode)
	assert.Equal(t, in.RecLen, out.RecLen)
	assert.Equal(t, in.NameLen, out.NameLen)
	assert.Equal(t, in.FileType, out.FileType)
	assert.Equal(t, in.Name, out.Name)
}

func TestDirEntryTombstone(t *testing.T) {
	e := DirEntry{Inode: 0, RecLen: 12}
	assert.True(t, e.IsTombstone(), "expected tombstone for zero inode")

	live := DirEntry{Inode: 7, RecLen: 12}
	assert.False(t, live.IsTombstone(), "did not expect tombstone for nonzero inode")
}
