package ext2fs

import "errors"

// Package-specific sentinel errors, matched with errors.Is() by callers.
// Per-name context (which
// file, which directory) is attached by wrapping with fmt.Errorf("...:
// %w", ...) at the call site rather than defining one struct per kind —
// only IoError carries structured fields of its own, since offset/len
// are the only detail worth programmatic access to.
var (
	// ErrNotExt2 is returned when the superblock magic does not match.
	ErrNotExt2 = errors.New("not a valid ext2 filesystem")

	// ErrOutOfInodes is returned when no group has a free inode.
	ErrOutOfInodes = errors.New("no free inodes available")

	// ErrOutOfBlocks is returned when no group has a free block.
	ErrOutOfBlocks = errors.New("no free blocks available")

	// ErrNotFound is returned when a name lookup fails.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when a create/rename target name
	// already has an entry in the directory.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNotDirectory is returned when an operation requiring a
	// directory inode is given something else.
	ErrNotDirectory = errors.New("not a directory")

	// ErrIsDirectory is returned when an operation requiring a
	// non-directory inode is given a directory.
	ErrIsDirectory = errors.New("is a directory")

	// ErrNotEmpty is returned by rmdir on a directory holding anything
	// beyond "." and "..".
	ErrNotEmpty = errors.New("directory not empty")

	// ErrNameTooLong is returned for a name exceeding 255 bytes.
	ErrNameTooLong = errors.New("name too long")

	// ErrNoSpaceInDir is returned when DirStore.Insert cannot find a
	// direct block with a fitting slack slot. The engine never grows a
	// directory by allocating another block.
	ErrNoSpaceInDir = errors.New("no space in directory")

	// ErrReadOnly is returned by a mutating Ops call when the engine was
	// started with --readonly-check.
	ErrReadOnly = errors.New("image opened with readonly-check, mutation rejected")
)

// MaxNameLen is the largest name length the on-disk format's
// name_len byte can represent.
const MaxNameLen = 255
