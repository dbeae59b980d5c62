package ext2fs

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

// These constants describe the tiny synthetic ext2 image every test
// in this package builds fresh: one group, 1 KiB blocks, 32 inodes.
const (
	testBlockSize      = 1024
	testBlocksCount    = 64
	testInodesPerGroup = 32
	testBlockBitmapBn  = 3
	testInodeBitmapBn  = 4
	testInodeTableBn   = 5 // occupies blocks 5..8 (4 * 1024 = 32 * 128)
	testRootDataBn     = 9
	testFirstFreeBn    = 10
)

// newTestEngine builds a minimal valid ext2 image in a temp file and
// returns an Engine opened over it. The image has exactly one block
// group, a root directory occupying block 9 with "." and ".." only,
// and every block from testFirstFreeBn up free.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "ext2shell-test-*.img")
	if err != nil {
		t.Fatalf("create temp image: %s", err)
	}
	path := f.Name()
	if err := f.Truncate(int64(testBlocksCount) * testBlockSize); err != nil {
		t.Fatalf("truncate image: %s", err)
	}
	f.Close()

	log := logrus.New()
	log.SetLevel(logrus.FatalLevel)

	dev, err := OpenDevice(path, log)
	if err != nil {
		t.Fatalf("open device: %s", err)
	}

	sb := &Superblock{
		InodesCount:     testInodesPerGroup,
		BlocksCount:     testBlocksCount,
		FreeBlocksCount: testBlocksCount - 9,
		FreeInodesCount: testInodesPerGroup - 2,
		FirstDataBlock:  1,
		LogBlockSize:    0, // 1024 << 0 == 1024
		BlocksPerGroup:  testBlocksCount,
		FragsPerGroup:   testBlocksCount,
		InodesPerGroup:  testInodesPerGroup,
		Magic:           Ext2Magic,
		RevLevel:        1,
		FirstIno:        11,
		InodeSizeField:  InodeSize,
	}
	copy(sb.VolumeName[:], "testvol")
	if err := WriteSuperblock(dev, sb); err != nil {
		t.Fatalf("write superblock: %s", err)
	}

	gd := &GroupDesc{
		BlockBitmap:     testBlockBitmapBn,
		InodeBitmap:     testInodeBitmapBn,
		InodeTable:      testInodeTableBn,
		FreeBlocksCount: uint16(testBlocksCount - 9),
		FreeInodesCount: uint16(testInodesPerGroup - 2),
		UsedDirsCount:   1,
	}
	if err := WriteGroupDesc(dev, sb, 0, gd); err != nil {
		t.Fatalf("write group desc: %s", err)
	}

	blockBM := make([]byte, testBlockSize)
	for bit := uint32(0); bit < 9; bit++ {
		bitmapSet(blockBM, bit)
	}
	if err := WriteBlock(dev, sb, testBlockBitmapBn, blockBM); err != nil {
		t.Fatalf("write block bitmap: %s", err)
	}

	inodeBM := make([]byte, testBlockSize)
	bitmapSet(inodeBM, 0)
	bitmapSet(inodeBM, 1)
	if err := WriteBlock(dev, sb, testInodeBitmapBn, inodeBM); err != nil {
		t.Fatalf("write inode bitmap: %s", err)
	}

	rootBlock := make([]byte, testBlockSize)
	encodeDirEntry(rootBlock, 0, DirEntry{Inode: RootInode, RecLen: 12, NameLen: 1, FileType: FtDir, Name: "."})
	encodeDirEntry(rootBlock, 12, DirEntry{Inode: RootInode, RecLen: uint16(testBlockSize - 12), NameLen: 2, FileType: FtDir, Name: ".."})
	if err := WriteBlock(dev, sb, testRootDataBn, rootBlock); err != nil {
		t.Fatalf("write root block: %s", err)
	}

	rootInode := &Inode{
		Mode:       ModeIFDIR | 0755,
		Size:       testBlockSize,
		LinksCount: 2,
		Blocks:     testBlockSize / 512,
	}
	rootInode.Block[0] = testRootDataBn
	if err := PutInode(dev, sb, RootInode, rootInode); err != nil {
		t.Fatalf("write root inode: %s", err)
	}

	if err := dev.Close(); err != nil {
		t.Fatalf("close setup device: %s", err)
	}

	eng, err := Open(path, log)
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}
