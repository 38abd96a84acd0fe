package hashtree

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/deploymenttheory/go-apkverity/internal/interfaces"
	"github.com/deploymenttheory/go-apkverity/internal/types"
)

// TransferWindowSize is the default read window for file-backed sources.
// 1 MiB fits comfortably in memory and keeps syscall overhead low.
const TransferWindowSize = 1024 * 1024

// DefaultSalt is the 8-byte all-zero salt used throughout apk-verity.
var DefaultSalt = make([]byte, types.SaltSize)

// leafRange describes one segment of the leaf digest input: either a region
// of the source file or a synthetic byte literal substituted in place of the
// real content.
type leafRange struct {
	offset    int64
	length    int64
	synthetic []byte
}

// leafRanges returns the segments of the source file covered by the leaf
// level, in order. The APK Signing Block is skipped entirely, and the central
// directory offset field inside the EOCD record is replaced by the signing
// block's start offset so the hash stays stable when the block changes size.
func leafRanges(fileSize int64, sig types.SignatureInfo) []leafRange {
	cdOffsetFieldPos := sig.EocdOffset + types.ZipEocdCentralDirOffsetFieldOffset

	substituted := make([]byte, types.ZipEocdCentralDirOffsetFieldSize)
	binary.LittleEndian.PutUint32(substituted, uint32(sig.ApkSigningBlockOffset))

	afterField := cdOffsetFieldPos + types.ZipEocdCentralDirOffsetFieldSize
	return []leafRange{
		{offset: 0, length: sig.ApkSigningBlockOffset},
		{offset: sig.CentralDirOffset, length: cdOffsetFieldPos - sig.CentralDirOffset},
		{synthetic: substituted},
		{offset: afterField, length: fileSize - afterField},
	}
}

// consumeByChunk feeds the source to the digester in reads of at most
// transferSize bytes. The transfer size is independent of the digester's own
// windowing.
func consumeByChunk(d interfaces.DataDigester, src interfaces.DataSource, transferSize int) error {
	inputRemaining := src.Size()
	var inputOffset int64
	buf := make([]byte, transferSize)
	for inputRemaining > 0 {
		size := inputRemaining
		if size > int64(transferSize) {
			size = int64(transferSize)
		}
		n, err := src.ReadAt(buf[:size], inputOffset)
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read source at offset %d: %w", inputOffset, err)
		}
		if int64(n) != size {
			return fmt.Errorf("short read at offset %d: got %d bytes, want %d: %w",
				inputOffset, n, size, io.ErrUnexpectedEOF)
		}
		if err := d.Consume(buf[:size]); err != nil {
			return err
		}
		inputOffset += size
		inputRemaining -= size
	}
	return nil
}

// generateLeafLevel digests the source file into the leaf level output
// region, skipping the signing block and substituting the EOCD central
// directory offset field.
func generateLeafLevel(apk interfaces.DataSource, sig types.SignatureInfo, salt, out []byte) error {
	digester := newBufferedDigester(salt, out)
	fileSize := apk.Size()

	for _, r := range leafRanges(fileSize, sig) {
		if r.synthetic != nil {
			if err := digester.Consume(r.synthetic); err != nil {
				return err
			}
			continue
		}
		src := io.NewSectionReader(apk, r.offset, r.length)
		if err := consumeByChunk(digester, src, TransferWindowSize); err != nil {
			return err
		}
	}

	// Pad zeros up to the nearest chunk boundary before the final hash.
	lastIncompleteChunkSize := int(fileSize % types.ChunkSize)
	if lastIncompleteChunkSize != 0 {
		padding := make([]byte, types.ChunkSize-lastIncompleteChunkSize)
		if err := digester.Consume(padding); err != nil {
			return err
		}
	}
	if err := digester.assertEmpty(); err != nil {
		return err
	}

	digester.fillLastOutputChunk()
	return nil
}

// GenerateTree fills the caller-supplied tree buffer with the full hash tree
// for the source and returns the root hash. The buffer must be sized to
// levelOffset's final entry; level i occupies
// tree[levelOffset[i]:levelOffset[i+1]].
func GenerateTree(apk interfaces.DataSource, sig types.SignatureInfo, salt []byte,
	levelOffset []int64, tree []byte) ([]byte, error) {

	if err := sig.CheckChunkAligned(); err != nil {
		return nil, err
	}

	// Digest the apk to generate the leaf level hashes.
	n := len(levelOffset)
	if err := generateLeafLevel(apk, sig, salt, tree[levelOffset[n-2]:levelOffset[n-1]]); err != nil {
		return nil, err
	}

	// Digest the lower level hashes bottom up.
	for level := n - 3; level >= 0; level-- {
		input := tree[levelOffset[level+1]:levelOffset[level+2]]
		output := tree[levelOffset[level]:levelOffset[level+1]]

		digester := newBufferedDigester(salt, output)
		if err := consumeByChunk(digester, bytes.NewReader(input), types.ChunkSize); err != nil {
			return nil, err
		}
		if err := digester.assertEmpty(); err != nil {
			return nil, err
		}
		digester.fillLastOutputChunk()
	}

	// Digest the first block to generate the root hash. A tree smaller than
	// one chunk (empty input) is padded with zeros to a full chunk first.
	firstBlock := tree
	if len(firstBlock) > types.ChunkSize {
		firstBlock = firstBlock[:types.ChunkSize]
	} else if len(firstBlock) < types.ChunkSize {
		padded := make([]byte, types.ChunkSize)
		copy(padded, firstBlock)
		firstBlock = padded
	}
	rootHash := make([]byte, types.DigestSize)
	digester := newBufferedDigester(salt, rootHash)
	if err := digester.Consume(firstBlock); err != nil {
		return nil, err
	}
	if err := digester.assertEmpty(); err != nil {
		return nil, err
	}
	return rootHash, nil
}
