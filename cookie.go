package blockfile

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// minCookieSize = objectID + size + checksum + nameLen = 1 + 1 + 1 + 1; the
// name may be empty.
var minCookieSize = 4

// FlushCookie describes one sealed block object. It is produced by Flush
// and consumed by the tiering coordinator, which uses it to hand the object
// to the bucket backend and later garbage-collect it.
type FlushCookie struct {
	ObjectID ObjectID
	Size     uint64
	Name     string
	Checksum uint64
}

// Marshal encodes the cookie as varints plus the name bytes.
func (c FlushCookie) Marshal() []byte {
	buf := bytes.NewBuffer(nil)
	tmp := make([]byte, binary.MaxVarintLen64)

	n := binary.PutUvarint(tmp, uint64(c.ObjectID))
	buf.Write(tmp[:n])
	n = binary.PutUvarint(tmp, c.Size)
	buf.Write(tmp[:n])
	n = binary.PutUvarint(tmp, c.Checksum)
	buf.Write(tmp[:n])
	n = binary.PutUvarint(tmp, uint64(len(c.Name)))
	buf.Write(tmp[:n])
	buf.WriteString(c.Name)
	return buf.Bytes()
}

// Unmarshal decodes a cookie produced by Marshal.
func (c *FlushCookie) Unmarshal(data []byte) error {
	if data == nil {
		return errors.New("empty cookie data")
	}
	if len(data) < minCookieSize {
		return errors.Errorf("cookie data less than min size %d", minCookieSize)
	}
	reader := bytes.NewReader(data)

	objectID, err := binary.ReadUvarint(reader)
	if err != nil {
		return errors.Wrap(err, "failed to read cookie object id")
	}
	size, err := binary.ReadUvarint(reader)
	if err != nil {
		return errors.Wrap(err, "failed to read cookie size")
	}
	checksum, err := binary.ReadUvarint(reader)
	if err != nil {
		return errors.Wrap(err, "failed to read cookie checksum")
	}
	nameLen, err := binary.ReadUvarint(reader)
	if err != nil {
		return errors.Wrap(err, "failed to read cookie name length")
	}
	if uint64(reader.Len()) != nameLen {
		return errors.Errorf("cookie name length %d, %d bytes remain", nameLen, reader.Len())
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(reader, name); err != nil {
		return errors.Wrap(err, "failed to read cookie name")
	}

	c.ObjectID = ObjectID(objectID)
	c.Size = size
	c.Checksum = checksum
	c.Name = string(name)
	return nil
}
