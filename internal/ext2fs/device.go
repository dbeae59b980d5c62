package ext2fs

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// IoError reports a positioned read or write that could not transfer
// the full requested range. The on-disk engine never tolerates a short
// transfer: a truncated image is a hard failure, not a partial result.
type IoError struct {
	Offset int64
	Len    int
	Op     string
	Err    error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("ext2fs: %s at offset %d len %d: %s", e.Op, e.Offset, e.Len, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// Device is a positioned byte stream over an ext2 image file. It is the
// sole owner of the underlying file descriptor; Close releases it.
type Device struct {
	f   *os.File
	log logrus.FieldLogger
}

// OpenDevice opens path for read-write access. A read-only image is a
// fatal condition here: the engine is built around mutation and has no
// reduced read-only mode.
func OpenDevice(path string, log logrus.FieldLogger) (*Device, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, &IoError{Op: "open", Err: err}
	}
	log.WithField("path", path).Debug("ext2fs: device opened read-write")
	return &Device{f: f, log: log}, nil
}

// Close is idempotent and safe to call multiple times; it is the
// guaranteed-release mechanism for the file descriptor on every exit
// path, including error returns from the engine constructor.
func (d *Device) Close() error {
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}

// ReadAt reads exactly len(buf) bytes at off, failing with *IoError on
// any short read instead of returning a partial buffer.
func (d *Device) ReadAt(off int64, buf []byte) error {
	n, err := io.ReadFull(io.NewSectionReader(d.f, off, int64(len(buf))), buf)
	if err != nil || n != len(buf) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		d.log.WithFields(logrus.Fields{"offset": off, "len": len(buf)}).Tracef("ext2fs: short read: %s", err)
		return &IoError{Offset: off, Len: len(buf), Op: "read", Err: err}
	}
	d.log.WithFields(logrus.Fields{"offset": off, "len": len(buf)}).Trace("ext2fs: read")
	return nil
}

// WriteAt writes all of buf at off, failing with *IoError on any short
// write.
func (d *Device) WriteAt(off int64, buf []byte) error {
	n, err := d.f.WriteAt(buf, off)
	if err != nil || n != len(buf) {
		if err == nil {
			err = errors.New("short write")
		}
		d.log.WithFields(logrus.Fields{"offset": off, "len": len(buf)}).Tracef("ext2fs: short write: %s", err)
		return &IoError{Offset: off, Len: len(buf), Op: "write", Err: err}
	}
	d.log.WithFields(logrus.Fields{"offset": off, "len": len(buf)}).Trace("ext2fs: write")
	return nil
}
