package ext2fs

import (
	"github.com/sirupsen/logrus"
)

// Allocator hands out and reclaims inode and block numbers, keeping
// the bitmap, group-descriptor, and superblock counters mutually
// consistent. It holds no cache beyond the in-memory superblock it
// was constructed with: every bitmap and group descriptor is re-read
// from disk on each call.
type Allocator struct {
	dev *Device
	sb  *Superblock
	log logrus.FieldLogger
}

// NewAllocator builds an Allocator over dev/sb. sb is mutated in place
// by every allocation/free, and each of those calls writes it back to
// disk itself via WriteSuperblock; callers do not write it separately.
func NewAllocator(dev *Device, sb *Superblock, log logrus.FieldLogger) *Allocator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Allocator{dev: dev, sb: sb, log: log}
}

// AllocateInode finds the first free inode across all groups in
// ascending order, claims it, and keeps every counter coherent.
func (a *Allocator) AllocateInode() (uint32, error) {
	groups := a.sb.GroupCount()
	for g := uint32(0); g < groups; g++ {
		gd, err := ReadGroupDesc(a.dev, a.sb, g)
		if err != nil {
			return 0, err
		}
		if gd.FreeInodesCount == 0 {
			continue
		}
		bm, err := ReadBlock(a.dev, a.sb, gd.InodeBitmap)
		if err != nil {
			return 0, err
		}
		bit := firstClearBit(bm, a.sb.InodesPerGroup)
		if bit < 0 {
			continue
		}
		bitmapSet(bm, uint32(bit))
		if err := WriteBlock(a.dev, a.sb, gd.InodeBitmap, bm); err != nil {
			return 0, err
		}
		a.sb.FreeInodesCount--
		gd.FreeInodesCount--
		if err := WriteSuperblock(a.dev, a.sb); err != nil {
			return 0, err
		}
		if err := WriteGroupDesc(a.dev, a.sb, g, gd); err != nil {
			return 0, err
		}
		n := g*a.sb.InodesPerGroup + uint32(bit) + 1
		a.log.WithFields(logrus.Fields{"inode": n, "group": g}).Debug("ext2fs: inode allocated")
		return n, nil
	}
	return 0, ErrOutOfInodes
}

// AllocateBlock finds the first free block across all groups in
// ascending order, claims it, and keeps every counter coherent.
func (a *Allocator) AllocateBlock() (uint32, error) {
	groups := a.sb.GroupCount()
	for g := uint32(0); g < groups; g++ {
		gd, err := ReadGroupDesc(a.dev, a.sb, g)
		if err != nil {
			return 0, err
		}
		if gd.FreeBlocksCount == 0 {
			continue
		}
		bm, err := ReadBlock(a.dev, a.sb, gd.BlockBitmap)
		if err != nil {
			return 0, err
		}
		bit := firstClearBit(bm, a.sb.BlocksPerGroup)
		if bit < 0 {
			continue
		}
		bitmapSet(bm, uint32(bit))
		if err := WriteBlock(a.dev, a.sb, gd.BlockBitmap, bm); err != nil {
			return 0, err
		}
		a.sb.FreeBlocksCount--
		gd.FreeBlocksCount--
		if err := WriteSuperblock(a.dev, a.sb); err != nil {
			return 0, err
		}
		if err := WriteGroupDesc(a.dev, a.sb, g, gd); err != nil {
			return 0, err
		}
		n := g*a.sb.BlocksPerGroup + uint32(bit) + 1
		a.log.WithFields(logrus.Fields{"block": n, "group": g}).Debug("ext2fs: block allocated")
		return n, nil
	}
	return 0, ErrOutOfBlocks
}

// FreeInode releases inode n: idempotent on n == 0. It reads the
// inode's current mode to decide whether to decrement the owning
// group's used-dirs-count: freeing a directory inode always does.
func (a *Allocator) FreeInode(n uint32) error {
	if n == 0 {
		return nil
	}
	g := groupOfInode(n, a.sb.InodesPerGroup)
	gd, err := ReadGroupDesc(a.dev, a.sb, g)
	if err != nil {
		return err
	}
	in, err := ReadInode(a.dev, a.sb, gd, n)
	if err != nil {
		return err
	}
	bm, err := ReadBlock(a.dev, a.sb, gd.InodeBitmap)
	if err != nil {
		return err
	}
	bit := indexInGroupOfInode(n, a.sb.InodesPerGroup)
	bitmapClear(bm, bit)
	if err := WriteBlock(a.dev, a.sb, gd.InodeBitmap, bm); err != nil {
		return err
	}
	a.sb.FreeInodesCount++
	gd.FreeInodesCount++
	if in.IsDir() {
		gd.UsedDirsCount--
	}
	if err := WriteSuperblock(a.dev, a.sb); err != nil {
		return err
	}
	if err := WriteGroupDesc(a.dev, a.sb, g, gd); err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{"inode": n, "group": g}).Debug("ext2fs: inode freed")
	return nil
}

// FreeBlock releases block n: idempotent on n == 0.
func (a *Allocator) FreeBlock(n uint32) error {
	if n == 0 {
		return nil
	}
	g := (n - 1) / a.sb.BlocksPerGroup
	gd, err := ReadGroupDesc(a.dev, a.sb, g)
	if err != nil {
		return err
	}
	bm, err := ReadBlock(a.dev, a.sb, gd.BlockBitmap)
	if err != nil {
		return err
	}
	bit := (n - 1) % a.sb.BlocksPerGroup
	bitmapClear(bm, bit)
	if err := WriteBlock(a.dev, a.sb, gd.BlockBitmap, bm); err != nil {
		return err
	}
	a.sb.FreeBlocksCount++
	gd.FreeBlocksCount++
	if err := WriteSuperblock(a.dev, a.sb); err != nil {
		return err
	}
	if err := WriteGroupDesc(a.dev, a.sb, g, gd); err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{"block": n, "group": g}).Debug("ext2fs: block freed")
	return nil
}

// GroupDescFor returns the group descriptor owning inode n, a small
// helper Ops.Mkdir uses to bump used-dirs-count on the new directory
// inode's own group, which AllocateInode leaves unchanged.
func (a *Allocator) GroupDescFor(inodeNum uint32) (uint32, *GroupDesc, error) {
	g := groupOfInode(inodeNum, a.sb.InodesPerGroup)
	gd, err := ReadGroupDesc(a.dev, a.sb, g)
	return g, gd, err
}
