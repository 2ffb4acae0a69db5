package blockfile

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// RollToNewFile seals the active object and switches the handle to a new
// one: the current file is closed, the object id advances by one, and a
// fresh object file is created through the storage routing with its
// descriptor written. The live checkpoint state is rebuilt for the new
// object.
//
// The old file is closed before the new one is opened, so a failure at the
// open or descriptor step leaves the handle with no file; Pending reports
// that state and the id increment is kept, so a retry produces the next id.
func (b *Block) RollToNewFile() error {
	if !b.hasObjects {
		return nil
	}
	if b.name == "" {
		return ErrNoName
	}

	buf := getScratch()
	defer putScratch(buf)

	if err := b.closeFile(); err != nil {
		return err
	}

	// Bump to a new object id.
	b.objectID++
	fmt.Fprintf(buf, "%s.%08d", b.name, b.objectID)
	filename := buf.String()

	f, err := b.ops.create(filename)
	if err != nil {
		return errors.Wrapf(err, "cannot open block object %s", filename)
	}
	b.adoptFile(f)

	if err := b.writeDescriptor(); err != nil {
		return err
	}
	b.size = uint64(b.allocSize)

	b.live.destroy()
	b.live = newCkptState("live", b.objectID)

	log.WithFields(log.Fields{
		"block":  b.name,
		"object": b.objectID,
	}).Debug("rolled block to new object file")
	return nil
}

// Load seeds the handle from a persisted checkpoint. For a writable open
// the handle advances to a fresh object for all future changes, leaving the
// checkpoint's own object immutable. A read-only open keeps the
// checkpoint's object unless RollOnReadOnlyLoad was set.
func (b *Block) Load(ckpt Checkpoint) error {
	if !b.hasObjects {
		return nil
	}
	if b.objectID != 0 && ckpt.RootObjectID < b.objectID {
		return errors.Wrapf(ErrStaleCheckpoint, "checkpoint %d, block %d", ckpt.RootObjectID, b.objectID)
	}
	b.objectID = ckpt.RootObjectID

	if b.readOnly && !b.rollOnReadOnlyLoad {
		return b.openCurrent()
	}
	return b.RollToNewFile()
}

// Flush seals the active object for downstream tiering and switches the
// handle to a new one. The returned cookie describes the sealed object; it
// is what the flush coordinator hands to the bucket backend.
func (b *Block) Flush() (*FlushCookie, error) {
	if !b.hasObjects {
		return &FlushCookie{}, nil
	}
	cookie := &FlushCookie{
		ObjectID: b.objectID,
		Size:     b.size,
		Name:     b.name,
		Checksum: b.descChecksum,
	}
	if err := b.RollToNewFile(); err != nil {
		return nil, err
	}
	return cookie, nil
}

// openCurrent opens the object the handle currently points at, read-only,
// without advancing the id. Used for read-only loads.
func (b *Block) openCurrent() error {
	buf := getScratch()
	defer putScratch(buf)

	if err := b.closeFile(); err != nil {
		return err
	}

	fmt.Fprintf(buf, "%s.%08d", b.name, b.objectID)
	filename := buf.String()

	f, err := os.OpenFile(filename, setFlag(clearFlag(b.fileFlags, os.O_CREATE), os.O_RDONLY), 0)
	if err != nil {
		return errors.Wrapf(err, "cannot open block object %s", filename)
	}
	if err := waitflock(f, true, b.timeout); err != nil {
		_ = f.Close()
		return err
	}

	desc, err := readDescriptorFile(f)
	if err != nil {
		_ = f.Close()
		return err
	}
	if desc.AllocSize != b.allocSize {
		_ = f.Close()
		return errors.Errorf("object %s allocation size %d, block expects %d", filename, desc.AllocSize, b.allocSize)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "cannot stat block object %s", filename)
	}

	b.adoptFile(f)
	b.size = uint64(info.Size())
	b.descChecksum = desc.Checksum
	b.live.destroy()
	b.live = newCkptState("live", b.objectID)
	return nil
}
