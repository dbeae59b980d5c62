package ext2fs

import (
	"bytes"
	"encoding/binary"
)

// Mode type bits (standard POSIX file-type encoding in i_mode).
const (
	ModeIFIFO = 0x1000
	ModeIFCHR = 0x2000
	ModeIFDIR = 0x4000
	ModeIFBLK = 0x6000
	ModeIFREG = 0x8000
	ModeIFLNK = 0xA000
	ModeIFMT  = 0xF000
)

// Directory entry file_type values.
const (
	FtUnknown = 0
	FtRegFile = 1
	FtDir     = 2
	FtChrDev  = 3
	FtBlkDev  = 4
	FtFifo    = 5
	FtSock    = 6
	FtSymlink = 7
)

// NBlocks is the number of block pointer slots in an inode: 12 direct,
// single/double/triple indirect.
const NBlocks = 15

// Kind is the tagged variant of an inode's type bits.
type Kind int

const (
	KindOther Kind = iota
	KindRegular
	KindDirectory
	KindSymlink
)

// Inode mirrors struct ext2_inode bit-for-bit (128-byte revision-0
// layout; revision-1 images with a larger s_inode_size simply carry
// extra trailing bytes this engine never touches and preserves
// verbatim on round-trip, see Read/Write below).
type Inode struct {
	Mode       uint16
	UID        uint16
	Size       uint32
	ATime      uint32
	CTime      uint32
	MTime      uint32
	DTime      uint32
	GID        uint16
	LinksCount uint16
	Blocks     uint32 // 512-byte sector count
	Flags      uint32
	OSD1       uint32
	Block      [NBlocks]uint32
	Generation uint32
	FileACL    uint32
	DirACL     uint32
	Faddr      uint32
	OSD2       [12]byte
}

// inodeCoreSize is the size of the fixed fields above (128 bytes in
// the revision-0 layout).
const inodeCoreSize = 128

// Kind classifies the inode by its mode type bits.
func (in *Inode) Kind() Kind {
	switch in.Mode & ModeIFMT {
	case ModeIFREG:
		return KindRegular
	case ModeIFDIR:
		return KindDirectory
	case ModeIFLNK:
		return KindSymlink
	default:
		return KindOther
	}
}

func (in *Inode) IsDir() bool     { return in.Kind() == KindDirectory }
func (in *Inode) IsRegular() bool { return in.Kind() == KindRegular }
func (in *Inode) IsSymlink() bool { return in.Kind() == KindSymlink }

// IsLive reports whether the inode is in use: a nonzero link count and
// an unset deletion time.
func (in *Inode) IsLive() bool {
	return in.LinksCount > 0 && in.DTime == 0
}

// ReadInode reads inode number n (1-based, global across groups).
func ReadInode(dev *Device, sb *Superblock, gd *GroupDesc, n uint32) (*Inode, error) {
	off := inodeByteOffset(n, sb.InodesPerGroup, gd.InodeTable, sb.BlockSize(), sb.InodeRecordSize())
	buf := make([]byte, inodeCoreSize)
	if err := dev.ReadAt(off, buf); err != nil {
		return nil, err
	}
	in := &Inode{}
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, in); err != nil {
		return nil, err
	}
	return in, nil
}

// WriteInode writes inode number n. When the volume's inode record is
// larger than the 128-byte core (revision 1, configurable size), the
// trailing bytes of the on-disk slot are left untouched: WriteInode
// only ever overwrites the core fields it understands.
func WriteInode(dev *Device, sb *Superblock, gd *GroupDesc, n uint32, in *Inode) error {
	off := inodeByteOffset(n, sb.InodesPerGroup, gd.InodeTable, sb.BlockSize(), sb.InodeRecordSize())
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, in); err != nil {
		return err
	}
	return dev.WriteAt(off, buf.Bytes())
}
