package hashtree

import (
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/deploymenttheory/go-apkverity/internal/types"
)

// bufferedDigester consumes data in windows of exactly ChunkSize bytes,
// crossing batch boundaries as needed, and writes one salted SHA-256 digest
// per completed window to the next unused position of its output region.
type bufferedDigester struct {
	salt []byte
	md   hash.Hash

	// pending is the number of bytes digested since the last window was
	// finalized. Always less than ChunkSize.
	pending int

	digestBuf [types.DigestSize]byte

	out    []byte
	outPos int
}

func newBufferedDigester(salt, out []byte) *bufferedDigester {
	d := &bufferedDigester{
		salt: salt,
		md:   sha256.New(),
		out:  out,
	}
	d.md.Write(d.salt)
	return d
}

// Consume digests data up to ChunkSize per window (continuing from any
// previous remainder), writing the digest to the output region each time a
// window completes. Partial data at the end of a batch stays pending and the
// next batch continues the same window.
func (d *bufferedDigester) Consume(p []byte) error {
	for len(p) > 0 {
		allowance := types.ChunkSize - d.pending
		if allowance > len(p) {
			allowance = len(p)
		}
		d.md.Write(p[:allowance])
		p = p[allowance:]
		d.pending += allowance

		if d.pending == types.ChunkSize {
			if d.outPos+types.DigestSize > len(d.out) {
				return fmt.Errorf("digest output overrun: position %d in region of %d bytes",
					d.outPos, len(d.out))
			}
			sum := d.md.Sum(d.digestBuf[:0])
			copy(d.out[d.outPos:], sum)
			d.outPos += types.DigestSize

			d.md.Reset()
			d.md.Write(d.salt)
			d.pending = 0
		}
	}
	return nil
}

// assertEmpty verifies no bytes are pending. A nonzero count here is a logic
// defect in the caller's padding, never a data error.
func (d *bufferedDigester) assertEmpty() error {
	if d.pending != 0 {
		return fmt.Errorf("digester buffer is not empty: %d bytes pending", d.pending)
	}
	return nil
}

// fillLastOutputChunk zero-fills the output region from the cursor up to the
// next ChunkSize boundary.
func (d *bufferedDigester) fillLastOutputChunk() {
	lastBlockSize := d.outPos % types.ChunkSize
	if lastBlockSize == 0 {
		return
	}
	end := d.outPos + types.ChunkSize - lastBlockSize
	if end > len(d.out) {
		end = len(d.out)
	}
	for i := d.outPos; i < end; i++ {
		d.out[i] = 0
	}
	d.outPos = end
}
