package blockfile

import (
	"bytes"
	"sync"
)

// scratchPool holds buffers used to format object filenames. Buffers are
// private to a single call; callers release them on every exit path.
var scratchPool = sync.Pool{
	New: func() interface{} {
		return &bytes.Buffer{}
	},
}

func getScratch() *bytes.Buffer {
	return scratchPool.Get().(*bytes.Buffer)
}

func putScratch(buf *bytes.Buffer) {
	buf.Reset()
	scratchPool.Put(buf)
}
