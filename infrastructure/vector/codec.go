package vector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cespare/xxhash/v2"
)

// On-disk layout, all little-endian:
//
//	magic   uint32  "FVIX"
//	version uint32
//	dim     uint32
//	count   uint32
//	payload count*dim float32
//	sum     uint64  xxhash64 of header+payload
const (
	indexMagic   = 0x46564958 // "FVIX"
	indexVersion = 1
)

// ErrCorrupt indicates the serialized index failed structural or
// checksum validation, typically because the file pair was torn.
var ErrCorrupt = errors.New("vector index file corrupt")

// WriteTo serializes the index. Implements io.WriterTo.
func (x *Index) WriteTo(w io.Writer) (int64, error) {
	digest := xxhash.New()
	cw := &countingWriter{w: io.MultiWriter(w, digest)}

	header := [4]uint32{indexMagic, indexVersion, uint32(x.dim), uint32(x.Count())}
	for _, v := range header {
		if err := binary.Write(cw, binary.LittleEndian, v); err != nil {
			return cw.n, fmt.Errorf("write index header: %w", err)
		}
	}

	buf := make([]byte, 4)
	for _, f := range x.data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
		if _, err := cw.Write(buf); err != nil {
			return cw.n, fmt.Errorf("write index payload: %w", err)
		}
	}

	// Checksum trails the payload and is excluded from itself.
	if err := binary.Write(w, binary.LittleEndian, digest.Sum64()); err != nil {
		return cw.n, fmt.Errorf("write index checksum: %w", err)
	}
	return cw.n + 8, nil
}

// Read deserializes an index, validating magic, version and checksum.
func Read(r io.Reader) (*Index, error) {
	digest := xxhash.New()
	br := bufio.NewReader(r)
	tr := io.TeeReader(br, digest)

	var header [4]uint32
	for i := range header {
		if err := binary.Read(tr, binary.LittleEndian, &header[i]); err != nil {
			return nil, fmt.Errorf("%w: short header: %v", ErrCorrupt, err)
		}
	}
	if header[0] != indexMagic {
		return nil, fmt.Errorf("%w: bad magic %#x", ErrCorrupt, header[0])
	}
	if header[1] != indexVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, header[1])
	}

	dim := int(header[2])
	count := int(header[3])
	data := make([]float32, dim*count)
	buf := make([]byte, 4)
	for i := range data {
		if _, err := io.ReadFull(tr, buf); err != nil {
			return nil, fmt.Errorf("%w: short payload: %v", ErrCorrupt, err)
		}
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf))
	}

	want := digest.Sum64()
	var got uint64
	if err := binary.Read(br, binary.LittleEndian, &got); err != nil {
		return nil, fmt.Errorf("%w: missing checksum: %v", ErrCorrupt, err)
	}
	if got != want {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	return &Index{dim: dim, data: data}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
