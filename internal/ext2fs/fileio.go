package ext2fs

import (
	"encoding/binary"
	"errors"
)

// errHoleStop is an internal sentinel: a zero block pointer terminates
// the chain immediately rather than producing a zero-filled chunk, so
// a sparse hole truncates the read at that point. Never returned to
// callers of ReadFile.
var errHoleStop = errors.New("ext2fs: hole terminates chain")

// direct/indirect pointer slot indices within Inode.Block.
const (
	directBlocks   = 12
	singleIndirect = 12
	doubleIndirect = 13
	tripleIndirect = 14
)

// Chunk is one block's worth of file payload, truncated to Len on the
// final chunk so the caller never reads past i_size.
type Chunk struct {
	Data []byte
	Len  int
}

// ReadFile walks in's direct, single-indirect, and double-indirect
// block chains and invokes visit once per populated block in traversal
// order, stopping once i_size bytes have been delivered. Triple
// indirect is not traversed. A zero pointer anywhere in the chain
// terminates the read immediately: a sparse hole reads as truncated,
// it does not produce a zero-filled gap followed by more data.
func (ds *DirStore) ReadFile(in *Inode, visit func(Chunk) error) error {
	return readFile(ds.dev, ds.sb, in, visit)
}

func readFile(dev *Device, sb *Superblock, in *Inode, visit func(Chunk) error) error {
	bs := int(sb.BlockSize())
	remaining := int64(in.Size)
	if remaining == 0 {
		return nil
	}

	deliver := func(bn uint32) error {
		if remaining <= 0 {
			return nil
		}
		if bn == 0 {
			return errHoleStop
		}
		n := bs
		if int64(n) > remaining {
			n = int(remaining)
		}
		buf, err := ReadBlock(dev, sb, bn)
		if err != nil {
			return err
		}
		if err := visit(Chunk{Data: buf, Len: n}); err != nil {
			return err
		}
		remaining -= int64(n)
		return nil
	}

	for i := 0; i < directBlocks && remaining > 0; i++ {
		if err := deliver(in.Block[i]); err != nil {
			if err == errHoleStop {
				return nil
			}
			return err
		}
	}
	if remaining > 0 {
		if err := walkIndirect(dev, sb, in.Block[singleIndirect], 1, deliver, &remaining); err != nil {
			if err == errHoleStop {
				return nil
			}
			return err
		}
	}
	if remaining > 0 {
		if err := walkIndirect(dev, sb, in.Block[doubleIndirect], 2, deliver, &remaining); err != nil {
			if err == errHoleStop {
				return nil
			}
			return err
		}
	}
	return nil
}

// walkIndirect recurses depth levels of indirection (1 = single, 2 =
// double), delivering leaf data blocks via deliver. A zero pointer at
// any level stops the entire read (errHoleStop propagates to the
// caller): a sparse hole truncates the read, it does not skip ahead.
func walkIndirect(dev *Device, sb *Superblock, bn uint32, depth int, deliver func(uint32) error, remaining *int64) error {
	if *remaining <= 0 {
		return nil
	}
	if bn == 0 {
		return errHoleStop
	}
	block, err := ReadBlock(dev, sb, bn)
	if err != nil {
		return err
	}
	ptrsPerBlock := len(block) / 4
	for i := 0; i < ptrsPerBlock && *remaining > 0; i++ {
		ptr := binary.LittleEndian.Uint32(block[i*4:])
		if depth == 1 {
			if err := deliver(ptr); err != nil {
				return err
			}
		} else {
			if err := walkIndirect(dev, sb, ptr, depth-1, deliver, remaining); err != nil {
				return err
			}
		}
	}
	return nil
}

// FreeInodeBlocks releases every data block reachable from in (direct,
// single-indirect, double-indirect), plus each indirect pointer block
// itself, in the same traversal order reads use. It
// does not touch the inode or its link count; callers free those
// separately via Allocator.FreeInode.
func (a *Allocator) FreeInodeBlocks(in *Inode) error {
	for i := 0; i < directBlocks; i++ {
		if err := a.FreeBlock(in.Block[i]); err != nil {
			return err
		}
	}
	if err := a.freeIndirectTree(in.Block[singleIndirect], 1); err != nil {
		return err
	}
	if err := a.freeIndirectTree(in.Block[doubleIndirect], 2); err != nil {
		return err
	}
	return nil
}

func (a *Allocator) freeIndirectTree(bn uint32, depth int) error {
	if bn == 0 {
		return nil
	}
	block, err := ReadBlock(a.dev, a.sb, bn)
	if err != nil {
		return err
	}
	ptrsPerBlock := len(block) / 4
	for i := 0; i < ptrsPerBlock; i++ {
		ptr := binary.LittleEndian.Uint32(block[i*4:])
		if ptr == 0 {
			continue
		}
		if depth == 1 {
			if err := a.FreeBlock(ptr); err != nil {
				return err
			}
		} else {
			if err := a.freeIndirectTree(ptr, depth-1); err != nil {
				return err
			}
		}
	}
	return a.FreeBlock(bn)
}
