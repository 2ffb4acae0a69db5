package blockfile

import (
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"blockfile/bucket"
)

const (
	// DefaultAllocSize is the allocation unit used when no size is
	// configured; the descriptor occupies exactly one such unit.
	DefaultAllocSize uint32 = 4 * 1024
)

var (
	ErrNoName = errors.New("block has no name")
	ErrNoFile = errors.New("block has no open object file")
	// ErrReadOnly is returned on write attempts through a read-only handle.
	ErrReadOnly = errors.New("block opened read-only")
	// ErrStaleCheckpoint is returned when a checkpoint would move the
	// object id backwards.
	ErrStaleCheckpoint = errors.New("checkpoint object id is older than block object id")
)

// Options represents the options that can be set when opening a block.
type Options struct {
	// Timeout is the amount of time to wait to obtain the object-file lock.
	// When set to zero the lock attempt fails immediately if another
	// process holds it.
	Timeout time.Duration

	// Open the block in read-only mode. Object files are opened with a
	// shared lock and never created or advanced, unless
	// RollOnReadOnlyLoad is set.
	ReadOnly bool

	// RollOnReadOnlyLoad makes Load advance to a fresh object even for
	// read-only opens. Off by default: a read-only open gets the
	// checkpoint's own object.
	RollOnReadOnlyLoad bool

	// HasObjects marks the block as participating in tiering. When false,
	// Load, Flush and RollToNewFile are inert.
	HasObjects bool

	// AllocSize is the allocation unit of the block. The descriptor
	// written at the start of every object file is exactly this size.
	// Immutable after creation.
	AllocSize uint32

	// FileFlags are extra open-mode flags applied to every object file.
	FileFlags int

	// Compression selects the payload compressor for Append.
	Compression CompressAlgorithm

	// Storage, when set, routes object-file creation to a bucket backend.
	Storage bucket.Storage
}

// DefaultOptions are used when Open is given nil options.
var DefaultOptions = &Options{
	HasObjects:  true,
	AllocSize:   DefaultAllocSize,
	Compression: CompSnappy,
}

type fileState uint8

const (
	stateClosed fileState = iota
	// statePending: the previous object is closed and the next one is not
	// open yet. A failed rollover leaves the handle here.
	statePending
	stateOpen
)

// Block is the handle for one table's tiered block-object lifecycle. It owns
// at most one open object file at a time. Not safe for concurrent use; the
// caller serializes operations per handle.
type Block struct {
	name       string
	objectID   ObjectID
	allocSize  uint32
	fileFlags  int
	size       uint64
	hasObjects bool

	readOnly           bool
	rollOnReadOnlyLoad bool
	timeout            time.Duration
	mode               os.FileMode

	compression CompressAlgorithm
	compressor  Compressor

	file         *os.File
	state        fileState
	descChecksum uint64
	live         *ckptState
	router       *bucket.Router
	opened       bool

	ops struct {
		create  func(name string) (*os.File, error)
		writeAt func(b []byte, off int64) (n int, err error)
	}
}

// Open creates a handle for the block whose object files live at
// path.%08d. No object file is opened until Load or RollToNewFile.
func Open(path string, mode os.FileMode, options *Options) (*Block, error) {
	if path == "" {
		return nil, ErrNoName
	}
	if options == nil {
		options = DefaultOptions
	}
	allocSize := options.AllocSize
	if allocSize == 0 {
		allocSize = DefaultAllocSize
	}
	if allocSize < descriptorSize {
		return nil, errors.Errorf("allocation size %d smaller than descriptor %d", allocSize, descriptorSize)
	}
	compressor, err := compressorFor(options.Compression)
	if err != nil {
		return nil, err
	}

	b := &Block{
		name:               path,
		allocSize:          allocSize,
		fileFlags:          options.FileFlags,
		hasObjects:         options.HasObjects,
		readOnly:           options.ReadOnly,
		rollOnReadOnlyLoad: options.RollOnReadOnlyLoad,
		timeout:            options.Timeout,
		mode:               mode,
		compression:        options.Compression,
		compressor:         compressor,
		router:             bucket.NewRouter(options.Storage),
		live:               newCkptState("live", 0),
		opened:             true,
	}
	b.ops.create = b.createObject
	return b, nil
}

// Name returns the stable logical name of the block.
func (b *Block) Name() string { return b.name }

// ObjectID returns the id of the active object.
func (b *Block) ObjectID() ObjectID { return b.objectID }

// Size returns the logical size of the active object.
func (b *Block) Size() uint64 { return b.size }

// HasObjects reports whether the block participates in tiering.
func (b *Block) HasObjects() bool { return b.hasObjects }

// Pending reports whether the handle is between objects: the previous file
// is closed and no new one has been opened, which happens after a rollover
// fails at the open step. Callers should retry the rollover or abandon the
// handle.
func (b *Block) Pending() bool { return b.state == statePending }

// Close releases the handle and its open object file, if any.
func (b *Block) Close() error {
	if !b.opened {
		return nil
	}
	b.opened = false
	b.live.destroy()
	if err := b.closeFile(); err != nil {
		return err
	}
	b.state = stateClosed
	return nil
}

// Append writes a payload at the end of the active object and returns the
// offset it was written at. The payload is compressed with the block's
// configured algorithm when that makes it smaller.
func (b *Block) Append(p []byte) (uint64, error) {
	if b.file == nil {
		return 0, ErrNoFile
	}
	if b.readOnly {
		return 0, ErrReadOnly
	}
	data := p
	if b.compressor != nil {
		if c := b.compressor(p); len(c) < len(p) {
			data = c
		}
	}
	if _, err := b.ops.writeAt(data, int64(b.size)); err != nil {
		return 0, errors.Wrapf(err, "append to %s object %d failed", b.name, b.objectID)
	}
	off := b.size
	b.size += uint64(len(data))
	return off, nil
}

// createObject creates the named object file through the session's storage
// routing and takes the advisory lock on it.
func (b *Block) createObject(name string) (*os.File, error) {
	var f *os.File
	err := b.router.WithRouting(func(target bucket.Target) error {
		var terr error
		f, terr = target.Create(name, setFlag(b.fileFlags, os.O_RDWR|os.O_CREATE), b.mode)
		return terr
	})
	if err != nil {
		return nil, err
	}
	if err := waitflock(f, false, b.timeout); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// closeFile releases the active object file. The handle is left in the
// pending state; the caller decides the next state. A funlock failure is
// logged, a close failure propagates.
func (b *Block) closeFile() error {
	f := b.file
	b.file = nil
	b.ops.writeAt = nil
	b.state = statePending
	if f == nil {
		return nil
	}
	if err := funlock(f); err != nil {
		log.WithError(err).WithField("block", b.name).Warn("funlock failed on block object")
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close of %s object %d failed", b.name, b.objectID)
	}
	return nil
}

// adoptFile installs a freshly opened object file as the active one.
func (b *Block) adoptFile(f *os.File) {
	b.file = f
	b.ops.writeAt = f.WriteAt
	b.state = stateOpen
}
