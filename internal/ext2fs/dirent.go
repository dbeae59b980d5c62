package ext2fs

import "encoding/binary"

// dirEntryHeaderSize is the fixed 8-byte header preceding each
// entry's name bytes: inode(4) + rec_len(2) + name_len(1)
// + file_type(1).
const dirEntryHeaderSize = 8

// DirEntry is one decoded directory entry. A tombstone (deleted) entry
// has Inode == 0 but still occupies RecLen bytes.
type DirEntry struct {
	Inode    uint32
	RecLen   uint16
	NameLen  uint8
	FileType uint8
	Name     string

	offset int // byte offset within the block this was decoded from
}

// IsTombstone reports whether this slot has been deleted but still
// contributes its RecLen to the block-sum invariant.
func (e *DirEntry) IsTombstone() bool { return e.Inode == 0 }

func roundUp4(n int) int {
	return (n + 3) &^ 3
}

// idealLen is the minimal byte span (header + name, rounded to a
// 4-byte boundary) an entry with the given name length needs.
func idealLen(nameLen int) int {
	return dirEntryHeaderSize + roundUp4(nameLen)
}

// decodeDirEntry reads one entry starting at byte offset off within block.
func decodeDirEntry(block []byte, off int) DirEntry {
	inode := binary.LittleEndian.Uint32(block[off:])
	recLen := binary.LittleEndian.Uint16(block[off+4:])
	nameLen := block[off+6]
	fileType := block[off+7]
	name := ""
	if int(nameLen) > 0 && off+dirEntryHeaderSize+int(nameLen) <= len(block) {
		name = string(block[off+dirEntryHeaderSize : off+dirEntryHeaderSize+int(nameLen)])
	}
	return DirEntry{
		Inode:    inode,
		RecLen:   recLen,
		NameLen:  nameLen,
		FileType: fileType,
		Name:     name,
		offset:   off,
	}
}

// encodeDirEntry writes an entry's header and name bytes at byte
// offset off within block. Only the header+name span is written; any
// padding between the name's end and RecLen is left as-is (callers
// that split a fresh slot zero it first).
func encodeDirEntry(block []byte, off int, e DirEntry) {
	binary.LittleEndian.PutUint32(block[off:], e.Inode)
	binary.LittleEndian.PutUint16(block[off+4:], e.RecLen)
	block[off+6] = e.NameLen
	block[off+7] = e.FileType
	copy(block[off+dirEntryHeaderSize:], e.Name)
}
