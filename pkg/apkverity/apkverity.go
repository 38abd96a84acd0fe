// Package apkverity generates the apk-verity hash tree and descriptor for an
// installed APK. The tree format can be stored on disk for apk-verity setup
// and consumed by the kernel.
//
// Unlike a regular Merkle tree, the apk-verity tree does not cover the file
// fully: the APK Signing Block is skipped, and the "Central Directory offset"
// field of the ZIP End of Central Directory record gets special treatment so
// the root hash stays stable when the signing block is regenerated at a
// different size.
package apkverity

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-apkverity/internal/builders/descriptor"
	"github.com/deploymenttheory/go-apkverity/internal/device"
	"github.com/deploymenttheory/go-apkverity/internal/hashtree"
	"github.com/deploymenttheory/go-apkverity/internal/interfaces"
	"github.com/deploymenttheory/go-apkverity/internal/types"
)

// SignatureInfo carries the three APK offsets the signing-block locator
// supplies: signing block start, central directory start, EOCD start.
type SignatureInfo = types.SignatureInfo

// ByteBufferFactory supplies the output allocation for tree generation.
type ByteBufferFactory = interfaces.ByteBufferFactory

// DataSource is a random-access byte source of known size.
type DataSource = interfaces.DataSource

// DefaultSalt is the 8-byte all-zero salt apk-verity uses. The salt
// parameter stays on the lower-level interfaces for forward compatibility.
var DefaultSalt = hashtree.DefaultSalt

// HeapBufferFactory allocates output buffers on the Go heap. Callers that
// want the tree backed by an mmap region supply their own factory.
type HeapBufferFactory struct{}

// Create allocates a zeroed slice of exactly size bytes.
func (HeapBufferFactory) Create(size int) ([]byte, error) {
	return make([]byte, size), nil
}

// Result holds the generated verity data. VerityData contains the hash tree
// at the front; after GenerateApkVerity it also contains the descriptor and
// the trailing backward offset.
type Result struct {
	VerityData []byte
	TreeSize   int
	RootHash   []byte
}

// GenerateApkVerityTree generates the 4k, SHA-256 based hash tree for the
// given APK into a buffer from the factory. The buffer is sized with one
// extra chunk after the tree for the descriptor.
func GenerateApkVerityTree(apk DataSource, sig SignatureInfo, factory ByteBufferFactory) (*Result, error) {
	dataSize := apk.Size() - sig.SigningBlockSize()
	levelOffset, err := hashtree.CalculateLevelOffset(dataSize)
	if err != nil {
		return nil, err
	}
	treeSize := int(levelOffset[len(levelOffset)-1])

	// One chunk past the tree is the maximum size of the verity metadata.
	output, err := factory.Create(treeSize + types.MaxFooterSize)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate verity buffer: %w", err)
	}
	if len(output) < treeSize+types.MaxFooterSize {
		return nil, fmt.Errorf("buffer factory returned %d bytes, want %d",
			len(output), treeSize+types.MaxFooterSize)
	}

	rootHash, err := hashtree.GenerateTree(apk, sig, hashtree.DefaultSalt, levelOffset, output[:treeSize])
	if err != nil {
		return nil, err
	}

	return &Result{
		VerityData: output,
		TreeSize:   treeSize,
		RootHash:   rootHash,
	}, nil
}

// GenerateApkVerityFooter encodes the verity header and extensions for a
// file of the given size. The trailing backward offset is not included.
func GenerateApkVerityFooter(fileSize int64, sig SignatureInfo) ([]byte, error) {
	return descriptor.BuildFooter(fileSize, hashtree.DefaultSalt, sig)
}

// GenerateApkVerity runs full generation for the APK at path: the hash tree,
// the descriptor after it, and the trailing 4-byte backward offset pointing
// at the header start. The returned Result's VerityData is trimmed to the
// final on-disk length.
func GenerateApkVerity(path string, factory ByteBufferFactory, sig SignatureInfo) (*Result, error) {
	if err := sig.CheckChunkAligned(); err != nil {
		return nil, err
	}

	apk, err := device.Open(path)
	if err != nil {
		return nil, err
	}
	defer apk.Close()

	result, err := GenerateApkVerityTree(apk, sig, factory)
	if err != nil {
		return nil, err
	}

	footer, err := GenerateApkVerityFooter(apk.Size(), sig)
	if err != nil {
		return nil, err
	}
	if len(footer)+4 > types.MaxFooterSize {
		return nil, fmt.Errorf("descriptor does not fit the reserved chunk: %d bytes", len(footer))
	}

	n := copy(result.VerityData[result.TreeSize:], footer)

	// Put the backward offset to the verity header at the end.
	binary.LittleEndian.PutUint32(result.VerityData[result.TreeSize+n:], uint32(n+4))
	result.VerityData = result.VerityData[:result.TreeSize+n+4]
	return result, nil
}

// GenerateApkVerityRootHash computes the root hash for integrity measurement
// from an externally computed whole-file digest: the descriptor is rebuilt
// and SHA-256(footer || apkDigest) returned. This must stay consistent with
// what the kernel reports.
func GenerateApkVerityRootHash(fileSize int64, apkDigest []byte, sig SignatureInfo) ([]byte, error) {
	if err := sig.CheckChunkAligned(); err != nil {
		return nil, err
	}

	footer, err := GenerateApkVerityFooter(fileSize, sig)
	if err != nil {
		return nil, err
	}

	md := sha256.New()
	md.Write(footer)
	md.Write(apkDigest)
	return md.Sum(nil), nil
}
