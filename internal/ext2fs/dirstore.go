package ext2fs

import (
	"github.com/sirupsen/logrus"
)

// DirStore reads and splices packed directory entries within a
// directory inode's direct blocks. Indirect directory blocks are out
// of scope: every directory this tool creates or edits fits in its
// first 12 blocks.
type DirStore struct {
	dev *Device
	sb  *Superblock
	log logrus.FieldLogger
}

// NewDirStore builds a DirStore over dev/sb.
func NewDirStore(dev *Device, sb *Superblock, log logrus.FieldLogger) *DirStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DirStore{dev: dev, sb: sb, log: log}
}

// FoundEntry pairs a decoded entry with the block it was read from, so
// callers (Remove, RenameInPlace) can splice it back in place.
type FoundEntry struct {
	Entry     DirEntry
	BlockNum  uint32
	BlockIdx  int // index into dirInode.Block, 0..11
	BlockData []byte
}

// Iterate yields every non-tombstone entry across dir's direct blocks,
// in block-then-offset order. visit returning false stops iteration.
func (ds *DirStore) Iterate(dir *Inode, visit func(DirEntry) bool) error {
	bs := ds.sb.BlockSize()
	for i := 0; i < 12; i++ {
		bn := dir.Block[i]
		if bn == 0 {
			continue
		}
		block, err := ReadBlock(ds.dev, ds.sb, bn)
		if err != nil {
			return err
		}
		off := 0
		for off < int(bs) {
			e := decodeDirEntry(block, off)
			if e.RecLen == 0 {
				break
			}
			if !e.IsTombstone() {
				if !visit(e) {
					return nil
				}
			}
			off += int(e.RecLen)
		}
	}
	return nil
}

// Lookup scans dir for name, returning the owning inode number or 0
// if absent. Comparison is byte-exact over name[0:name_len].
func (ds *DirStore) Lookup(dir *Inode, name string) (uint32, error) {
	var found uint32
	err := ds.Iterate(dir, func(e DirEntry) bool {
		if e.Name == name {
			found = e.Inode
			return false
		}
		return true
	})
	return found, err
}

// find locates name's raw entry and the block it lives in, for Remove
// and RenameInPlace which need to splice the backing bytes.
func (ds *DirStore) find(dir *Inode, name string) (*FoundEntry, error) {
	bs := ds.sb.BlockSize()
	for i := 0; i < 12; i++ {
		bn := dir.Block[i]
		if bn == 0 {
			continue
		}
		block, err := ReadBlock(ds.dev, ds.sb, bn)
		if err != nil {
			return nil, err
		}
		off := 0
		for off < int(bs) {
			e := decodeDirEntry(block, off)
			if e.RecLen == 0 {
				break
			}
			if !e.IsTombstone() && e.Name == name {
				return &FoundEntry{Entry: e, BlockNum: bn, BlockIdx: i, BlockData: block}, nil
			}
			off += int(e.RecLen)
		}
	}
	return nil, nil
}

// Insert splices a new entry (ino, fileType, name) into the first
// block of dirNum/dir with enough slack, shrinking an existing entry's
// rec_len to its ideal length and handing the freed slack to the new
// entry. It never grows the directory: if no existing slot has room,
// ErrNoSpaceInDir is returned and the directory is left untouched.
// When fileType is FtDir, the parent's own link count is bumped and
// persisted.
func (ds *DirStore) Insert(dirNum uint32, dir *Inode, name string, ino uint32, fileType uint8) error {
	if len(name) == 0 || len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	bs := int(ds.sb.BlockSize())
	needed := idealLen(len(name))
	for i := 0; i < 12; i++ {
		bn := dir.Block[i]
		if bn == 0 {
			continue
		}
		block, err := ReadBlock(ds.dev, ds.sb, bn)
		if err != nil {
			return err
		}
		off := 0
		for off < bs {
			e := decodeDirEntry(block, off)
			if e.RecLen == 0 {
				break
			}
			slotIdeal := idealLen(int(e.NameLen))
			slack := int(e.RecLen) - slotIdeal
			if slack >= needed {
				e.RecLen = uint16(slotIdeal)
				encodeDirEntry(block, off, e)
				newOff := off + slotIdeal
				clearSlot(block, newOff, slack)
				encodeDirEntry(block, newOff, DirEntry{
					Inode:    ino,
					RecLen:   uint16(slack),
					NameLen:  uint8(len(name)),
					FileType: fileType,
					Name:     name,
				})
				if err := WriteBlock(ds.dev, ds.sb, bn, block); err != nil {
					return err
				}
				if fileType == FtDir {
					dir.LinksCount++
					if err := PutInode(ds.dev, ds.sb, dirNum, dir); err != nil {
						return err
					}
				}
				ds.log.WithFields(logrus.Fields{"name": name, "inode": ino}).Debug("ext2fs: directory entry inserted")
				return nil
			}
			off += int(e.RecLen)
		}
	}
	return ErrNoSpaceInDir
}

// clearSlot zeroes n bytes at off, used before writing a fresh entry
// into split-off slack so padding past the name is well-defined.
func clearSlot(block []byte, off, n int) {
	for i := off; i < off+n && i < len(block); i++ {
		block[i] = 0
	}
}

// Remove deletes name from dir: the first entry in a block becomes a
// tombstone (inode zeroed, rec_len preserved); any other entry has its
// rec_len absorbed into the preceding entry's rec_len.
// Returns ErrNotFound if name is absent.
func (ds *DirStore) Remove(dir *Inode, name string) error {
	bs := int(ds.sb.BlockSize())
	for i := 0; i < 12; i++ {
		bn := dir.Block[i]
		if bn == 0 {
			continue
		}
		block, err := ReadBlock(ds.dev, ds.sb, bn)
		if err != nil {
			return err
		}
		var prevOff = -1
		off := 0
		for off < bs {
			e := decodeDirEntry(block, off)
			if e.RecLen == 0 {
				break
			}
			if !e.IsTombstone() && e.Name == name {
				if prevOff < 0 {
					e.Inode = 0
					e.Name = ""
					e.NameLen = 0
					e.FileType = 0
					encodeDirEntry(block, off, e)
				} else {
					prev := decodeDirEntry(block, prevOff)
					prev.RecLen += e.RecLen
					encodeDirEntry(block, prevOff, prev)
				}
				return WriteBlock(ds.dev, ds.sb, bn, block)
			}
			prevOff = off
			off += int(e.RecLen)
		}
	}
	return ErrNotFound
}

// RenameInPlace overwrites oldName's slot with newName without
// touching rec_len chaining, when the existing slot has room
// (header + round_up_4(len(newName)) fits within the current rec_len).
// It reports ok=false when the caller must fall back to
// Insert(newName)+Remove(oldName) instead.
func (ds *DirStore) RenameInPlace(dir *Inode, oldName, newName string) (ok bool, err error) {
	if len(newName) == 0 || len(newName) > MaxNameLen {
		return false, ErrNameTooLong
	}
	found, err := ds.find(dir, oldName)
	if err != nil || found == nil {
		return false, err
	}
	if int(found.Entry.RecLen) < idealLen(len(newName)) {
		return false, nil
	}
	e := found.Entry
	e.Name = newName
	e.NameLen = uint8(len(newName))
	clearSlot(found.BlockData, e.offset+dirEntryHeaderSize, int(e.RecLen)-dirEntryHeaderSize)
	encodeDirEntry(found.BlockData, e.offset, e)
	if err := WriteBlock(ds.dev, ds.sb, found.BlockNum, found.BlockData); err != nil {
		return false, err
	}
	ds.log.WithFields(logrus.Fields{"old": oldName, "new": newName}).Debug("ext2fs: directory entry renamed in place")
	return true, nil
}
