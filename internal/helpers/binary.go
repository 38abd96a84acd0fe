package helpers

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// BinaryWriter appends fixed-width little-endian values to an in-memory
// buffer. The verity descriptor layout is position-sensitive, so encoding
// goes through explicit put calls rather than struct serialization.
type BinaryWriter struct {
	buf   *bytes.Buffer
	order binary.ByteOrder
}

// NewBinaryWriter creates a binary writer with the specified byte order.
func NewBinaryWriter(order binary.ByteOrder) *BinaryWriter {
	return &BinaryWriter{
		buf:   new(bytes.Buffer),
		order: order,
	}
}

// PutUint8 writes a single byte.
func (bw *BinaryWriter) PutUint8(v uint8) {
	bw.buf.WriteByte(v)
}

// PutUint16 writes a uint16.
func (bw *BinaryWriter) PutUint16(v uint16) {
	var tmp [2]byte
	bw.order.PutUint16(tmp[:], v)
	bw.buf.Write(tmp[:])
}

// PutUint32 writes a uint32.
func (bw *BinaryWriter) PutUint32(v uint32) {
	var tmp [4]byte
	bw.order.PutUint32(tmp[:], v)
	bw.buf.Write(tmp[:])
}

// PutUint64 writes a uint64.
func (bw *BinaryWriter) PutUint64(v uint64) {
	var tmp [8]byte
	bw.order.PutUint64(tmp[:], v)
	bw.buf.Write(tmp[:])
}

// PutBytes writes raw bytes as-is.
func (bw *BinaryWriter) PutBytes(p []byte) {
	bw.buf.Write(p)
}

// PutZeros writes n zero bytes.
func (bw *BinaryWriter) PutZeros(n int) {
	bw.buf.Write(make([]byte, n))
}

// PadToAlignment writes zero bytes until the buffer length is a multiple of
// align. A buffer already aligned is left untouched.
func (bw *BinaryWriter) PadToAlignment(align int) {
	rem := bw.buf.Len() % align
	if rem == 0 {
		return
	}
	bw.PutZeros(align - rem)
}

// Len returns the number of bytes written so far.
func (bw *BinaryWriter) Len() int {
	return bw.buf.Len()
}

// Bytes returns the encoded bytes.
func (bw *BinaryWriter) Bytes() []byte {
	return bw.buf.Bytes()
}

// BinaryReader reads fixed-width values from a byte slice with offset
// bookkeeping.
type BinaryReader struct {
	data   []byte
	order  binary.ByteOrder
	offset int
}

// NewBinaryReader creates a binary reader over data with the specified byte
// order.
func NewBinaryReader(data []byte, order binary.ByteOrder) *BinaryReader {
	return &BinaryReader{
		data:  data,
		order: order,
	}
}

// Remaining returns the number of unread bytes.
func (br *BinaryReader) Remaining() int {
	return len(br.data) - br.offset
}

// Offset returns the current read position.
func (br *BinaryReader) Offset() int {
	return br.offset
}

func (br *BinaryReader) require(n int) error {
	if br.Remaining() < n {
		return fmt.Errorf("insufficient data: need %d bytes at offset %d, have %d: %w",
			n, br.offset, br.Remaining(), io.ErrUnexpectedEOF)
	}
	return nil
}

// ReadUint8 reads a single byte.
func (br *BinaryReader) ReadUint8() (uint8, error) {
	if err := br.require(1); err != nil {
		return 0, err
	}
	v := br.data[br.offset]
	br.offset++
	return v, nil
}

// ReadUint16 reads a uint16.
func (br *BinaryReader) ReadUint16() (uint16, error) {
	if err := br.require(2); err != nil {
		return 0, err
	}
	v := br.order.Uint16(br.data[br.offset : br.offset+2])
	br.offset += 2
	return v, nil
}

// ReadUint32 reads a uint32.
func (br *BinaryReader) ReadUint32() (uint32, error) {
	if err := br.require(4); err != nil {
		return 0, err
	}
	v := br.order.Uint32(br.data[br.offset : br.offset+4])
	br.offset += 4
	return v, nil
}

// ReadUint64 reads a uint64.
func (br *BinaryReader) ReadUint64() (uint64, error) {
	if err := br.require(8); err != nil {
		return 0, err
	}
	v := br.order.Uint64(br.data[br.offset : br.offset+8])
	br.offset += 8
	return v, nil
}

// ReadBytes reads a copy of the next length bytes.
func (br *BinaryReader) ReadBytes(length int) ([]byte, error) {
	if err := br.require(length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, br.data[br.offset:br.offset+length])
	br.offset += length
	return out, nil
}

// Skip advances the read position by n bytes.
func (br *BinaryReader) Skip(n int) error {
	if err := br.require(n); err != nil {
		return err
	}
	br.offset += n
	return nil
}
