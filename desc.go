package blockfile

import (
	"os"
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"github.com/outofforest/photon"
	"github.com/pkg/errors"
)

const (
	// blockfileMagic = "TBLF" in bigEndian
	Magic   uint32 = 0x464C4254
	Version uint16 = 1
)

var descriptorSize = uint32(unsafe.Sizeof(Descriptor{}))

// Descriptor is the fixed header written at the start of every block object
// file, padded to the block's allocation size. Everything after it is page
// data owned by the layers above.
type Descriptor struct {
	Magic       uint32
	Version     uint16
	Compression CompressAlgorithm
	AllocSize   uint32
	ObjectID    ObjectID
	Checksum    uint64
}

func (d *Descriptor) computeChecksum() uint64 {
	c := *d
	c.Checksum = 0
	return xxhash.Sum64(photon.NewFromValue(&c).B)
}

func (d *Descriptor) validate() error {
	if d.Magic != Magic {
		return errors.Errorf("bad descriptor magic %#x", d.Magic)
	}
	if d.Version != Version {
		return errors.Errorf("unsupported descriptor version %d", d.Version)
	}
	if checksum := d.computeChecksum(); checksum != d.Checksum {
		return errors.Errorf("descriptor checksum mismatch, computed %#x, stored %#x", checksum, d.Checksum)
	}
	return nil
}

// writeDescriptor writes the descriptor of the active object: exactly
// allocSize bytes at offset zero, before any page data.
func (b *Block) writeDescriptor() error {
	desc := &Descriptor{
		Magic:       Magic,
		Version:     Version,
		Compression: b.compression,
		AllocSize:   b.allocSize,
		ObjectID:    b.objectID,
	}
	desc.Checksum = desc.computeChecksum()

	buf := make([]byte, b.allocSize)
	copy(buf, photon.NewFromValue(desc).B)
	if _, err := b.ops.writeAt(buf, 0); err != nil {
		return errors.Wrapf(err, "descriptor write for %s object %d failed", b.name, b.objectID)
	}
	b.descChecksum = desc.Checksum
	return nil
}

// ReadDescriptor reads and validates the descriptor of an object file.
func ReadDescriptor(path string) (Descriptor, error) {
	f, err := os.Open(path)
	if err != nil {
		return Descriptor{}, errors.Wrapf(err, "cannot open block object %s", path)
	}
	defer f.Close()
	return readDescriptorFile(f)
}

func readDescriptorFile(f *os.File) (Descriptor, error) {
	desc := photon.NewFromBytes[Descriptor](make([]byte, descriptorSize))
	if _, err := f.ReadAt(desc.B, 0); err != nil {
		return Descriptor{}, errors.Wrapf(err, "cannot read descriptor of %s", f.Name())
	}
	if err := desc.V.validate(); err != nil {
		return Descriptor{}, errors.Wrapf(err, "invalid descriptor in %s", f.Name())
	}
	return *desc.V, nil
}
