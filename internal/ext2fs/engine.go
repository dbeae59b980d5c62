package ext2fs

import (
	"github.com/sirupsen/logrus"
)

// Engine wires Device, Superblock, Allocator, DirStore, and Path
// together into the single handle the shell and CLI operate through.
// It owns the image file descriptor for the program's lifetime.
type Engine struct {
	Dev   *Device
	SB    *Superblock
	Alloc *Allocator
	Dir   *DirStore
	Path  *Path
	log   logrus.FieldLogger

	// ReadOnly rejects mutating operations (touch/mkdir/rm/rmdir/rename)
	// with ErrReadOnly without affecting how the image was opened.
	ReadOnly bool
}

// Open mounts path: opens the device, reads and validates the
// superblock, and positions the current directory at root.
func Open(path string, log logrus.FieldLogger) (*Engine, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	dev, err := OpenDevice(path, log)
	if err != nil {
		return nil, err
	}
	sb, err := ReadSuperblock(dev, log)
	if err != nil {
		dev.Close()
		return nil, err
	}
	alloc := NewAllocator(dev, sb, log)
	dir := NewDirStore(dev, sb, log)
	p := NewPath(dev, sb, dir)
	return &Engine{Dev: dev, SB: sb, Alloc: alloc, Dir: dir, Path: p, log: log}, nil
}

// Close releases the underlying device.
func (e *Engine) Close() error {
	return e.Dev.Close()
}

// currentInode reads the inode backing the current working directory.
func (e *Engine) currentInode() (*Inode, error) {
	return GetInode(e.Dev, e.SB, e.Path.Current)
}
