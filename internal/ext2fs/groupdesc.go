package ext2fs

import (
	"bytes"
	"encoding/binary"
)

// GroupDescSize is the fixed on-disk size of a single group descriptor.
const GroupDescSize = 32

// GroupDesc mirrors struct ext2_group_desc bit-for-bit.
type GroupDesc struct {
	BlockBitmap     uint32
	InodeBitmap     uint32
	InodeTable      uint32
	FreeBlocksCount uint16
	FreeInodesCount uint16
	UsedDirsCount   uint16
	Pad             uint16
	Reserved        [3]uint32
}

// ReadGroupDesc reads the descriptor for group g.
func ReadGroupDesc(dev *Device, sb *Superblock, g uint32) (*GroupDesc, error) {
	off := groupDescOffset(g, sb.BlockSize(), GroupDescSize)
	buf := make([]byte, GroupDescSize)
	if err := dev.ReadAt(off, buf); err != nil {
		return nil, err
	}
	gd := &GroupDesc{}
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, gd); err != nil {
		return nil, err
	}
	return gd, nil
}

// WriteGroupDesc writes the descriptor for group g, round-tripping its
// Reserved padding.
func WriteGroupDesc(dev *Device, sb *Superblock, g uint32, gd *GroupDesc) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, gd); err != nil {
		return err
	}
	off := groupDescOffset(g, sb.BlockSize(), GroupDescSize)
	return dev.WriteAt(off, buf.Bytes())
}
