package ext2fs

import (
	"bytes"
	"encoding/binary"

	"github.com/sirupsen/logrus"
)

// Ext2Magic is the required value of Superblock.Magic for a valid
// ext2 revision-1 filesystem.
const Ext2Magic = 0xEF53

// SuperblockSize is the fixed on-disk size of the superblock region.
const SuperblockSize = 1024

// Superblock mirrors struct ext2_super_block bit-for-bit (little
// endian on disk). Field order and widths must not change: Read/Write
// round-trip the full SuperblockSize bytes, including the trailing
// Reserved padding, so an unrecognized or currently-unused field is
// never zeroed out from underneath a real ext2 image.
type Superblock struct {
	InodesCount       uint32
	BlocksCount       uint32
	RBlocksCount      uint32
	FreeBlocksCount   uint32
	FreeInodesCount   uint32
	FirstDataBlock    uint32
	LogBlockSize      uint32
	LogFragSize       uint32
	BlocksPerGroup    uint32
	FragsPerGroup     uint32
	InodesPerGroup    uint32
	MTime             uint32
	WTime             uint32
	MntCount          uint16
	MaxMntCount       uint16
	Magic             uint16
	State             uint16
	Errors            uint16
	MinorRevLevel     uint16
	LastCheck         uint32
	CheckInterval     uint32
	CreatorOS         uint32
	RevLevel          uint32
	DefResUID         uint16
	DefResGID         uint16
	FirstIno          uint32
	InodeSizeField    uint16
	BlockGroupNr      uint16
	FeatureCompat     uint32
	FeatureIncompat   uint32
	FeatureRoCompat   uint32
	UUID              [16]byte
	VolumeName        [16]byte
	LastMounted       [64]byte
	AlgoBitmap        uint32
	PreallocBlocks    uint8
	PreallocDirBlocks uint8
	Alignment         uint16
	JournalUUID       [16]byte
	JournalInum       uint32
	JournalDev        uint32
	LastOrphan        uint32
	HashSeed          [4]uint32
	DefHashVersion    uint8
	ReservedCharPad   uint8
	ReservedWordPad   uint16
	DefaultMountOpts  uint32
	FirstMetaBg       uint32
	MkfsTime          uint32
	JnlBlocks         [17]uint32
	Reserved          [172]uint32
}

// BlockSize returns 1024 << LogBlockSize.
func (s *Superblock) BlockSize() uint32 {
	return 1024 << s.LogBlockSize
}

// InodeRecordSize returns the on-disk inode record size: s_inode_size
// when the superblock carries one (revision 1+), else the fixed
// revision-0 128 bytes.
func (s *Superblock) InodeRecordSize() int {
	if s.InodeSizeField == 0 {
		return InodeSize
	}
	return int(s.InodeSizeField)
}

// VolumeNameString trims the trailing NULs from the fixed-size field.
func (s *Superblock) VolumeNameString() string {
	return cstring(s.VolumeName[:])
}

func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// GroupCount returns the number of block groups described by this
// superblock.
func (s *Superblock) GroupCount() uint32 {
	return groupCount(s.BlocksCount, s.BlocksPerGroup)
}

// ReadSuperblock reads and validates the superblock at byte offset
// BaseOffset. Magic mismatch is reported as ErrNotExt2.
func ReadSuperblock(dev *Device, log logrus.FieldLogger) (*Superblock, error) {
	buf := make([]byte, SuperblockSize)
	if err := dev.ReadAt(BaseOffset, buf); err != nil {
		return nil, err
	}
	sb := &Superblock{}
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, sb); err != nil {
		return nil, err
	}
	if sb.Magic != Ext2Magic {
		return nil, ErrNotExt2
	}
	if log != nil {
		log.WithFields(logrus.Fields{
			"blocks":  sb.BlocksCount,
			"inodes":  sb.InodesCount,
			"groups":  sb.GroupCount(),
			"bsize":   sb.BlockSize(),
			"volname": sb.VolumeNameString(),
		}).Debug("ext2fs: superblock read")
	}
	return sb, nil
}

// WriteSuperblock writes the full SuperblockSize byte image back to
// byte offset BaseOffset, preserving every field Read loaded
// (including Reserved) since the whole in-memory struct is re-encoded.
func WriteSuperblock(dev *Device, sb *Superblock) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, sb); err != nil {
		return err
	}
	b := buf.Bytes()
	if len(b) != SuperblockSize {
		// struct literal above must total exactly 1024 bytes; a mismatch
		// here means the struct layout was edited without updating Reserved.
		panic("ext2fs: superblock struct size mismatch")
	}
	return dev.WriteAt(BaseOffset, b)
}
