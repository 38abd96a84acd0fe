package hashtree

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-apkverity/internal/types"
)

// buildTestApk assembles a minimal APK-shaped file: pre-block content, an
// APK Signing Block (with its size fields and footer magic), a central
// directory, and an EOCD record with an optional comment.
func buildTestApk(t *testing.T, preChunks, blockChunks, cdSize, commentSize int) ([]byte, types.SignatureInfo) {
	t.Helper()

	preSize := preChunks * types.ChunkSize
	blockSize := blockChunks * types.ChunkSize

	pre := make([]byte, preSize)
	for i := range pre {
		pre[i] = byte(i%251) ^ byte(i/251)
	}

	block := make([]byte, blockSize)
	for i := range block {
		block[i] = 0xEE
	}
	// Size-of-block fields exclude the leading 8-byte field itself.
	binary.LittleEndian.PutUint64(block[:8], uint64(blockSize-8))
	binary.LittleEndian.PutUint64(block[blockSize-24:], uint64(blockSize-8))
	copy(block[blockSize-16:], types.ApkSigBlockMagicLo+types.ApkSigBlockMagicHi)

	cd := make([]byte, cdSize)
	for i := range cd {
		cd[i] = 0xC0 ^ byte(i)
	}

	eocd := make([]byte, types.ZipEocdRecMinSize+commentSize)
	binary.LittleEndian.PutUint32(eocd[0:], types.ZipEocdRecMagic)
	binary.LittleEndian.PutUint32(eocd[types.ZipEocdCentralDirSizeOffset:], uint32(cdSize))
	binary.LittleEndian.PutUint32(eocd[types.ZipEocdCentralDirOffsetFieldOffset:], uint32(preSize+blockSize))
	binary.LittleEndian.PutUint16(eocd[types.ZipEocdCommentSizeOffset:], uint16(commentSize))

	apk := append(append(append(pre, block...), cd...), eocd...)
	sig := types.SignatureInfo{
		ApkSigningBlockOffset: int64(preSize),
		CentralDirOffset:      int64(preSize + blockSize),
		EocdOffset:            int64(preSize + blockSize + cdSize),
	}
	return apk, sig
}

// leafStream reproduces the leaf digest input independently: everything
// before the signing block, the central directory through the EOCD offset
// field, the substituted offset, the rest of the file, zero padded to a
// whole chunk.
func leafStream(apk []byte, sig types.SignatureInfo) []byte {
	fieldPos := sig.EocdOffset + types.ZipEocdCentralDirOffsetFieldOffset

	var stream []byte
	stream = append(stream, apk[:sig.ApkSigningBlockOffset]...)
	stream = append(stream, apk[sig.CentralDirOffset:fieldPos]...)

	substituted := make([]byte, 4)
	binary.LittleEndian.PutUint32(substituted, uint32(sig.ApkSigningBlockOffset))
	stream = append(stream, substituted...)
	stream = append(stream, apk[fieldPos+4:]...)

	if rem := len(apk) % types.ChunkSize; rem != 0 {
		stream = append(stream, make([]byte, types.ChunkSize-rem)...)
	}
	return stream
}

func generate(t *testing.T, apk []byte, sig types.SignatureInfo) ([]byte, []byte) {
	t.Helper()

	dataSize := int64(len(apk)) - sig.SigningBlockSize()
	levelOffset, err := CalculateLevelOffset(dataSize)
	require.NoError(t, err)

	tree := make([]byte, levelOffset[len(levelOffset)-1])
	rootHash, err := GenerateTree(bytes.NewReader(apk), sig, DefaultSalt, levelOffset, tree)
	require.NoError(t, err)
	require.Len(t, rootHash, types.DigestSize)
	return rootHash, tree
}

func TestGenerateTree_Deterministic(t *testing.T) {
	apk, sig := buildTestApk(t, 2, 1, 100, 0)

	root1, tree1 := generate(t, apk, sig)
	root2, tree2 := generate(t, apk, sig)

	assert.Equal(t, root1, root2)
	assert.Equal(t, tree1, tree2)
}

func TestGenerateTree_SingleLevelMatchesManualComputation(t *testing.T) {
	apk, sig := buildTestApk(t, 2, 1, 100, 5)

	rootHash, tree := generate(t, apk, sig)
	require.Len(t, tree, types.ChunkSize)

	// Leaf digests computed independently.
	stream := leafStream(apk, sig)
	require.Zero(t, len(stream)%types.ChunkSize)

	var wantLeaf []byte
	for off := 0; off < len(stream); off += types.ChunkSize {
		md := sha256.New()
		md.Write(DefaultSalt)
		md.Write(stream[off : off+types.ChunkSize])
		wantLeaf = md.Sum(wantLeaf)
	}
	assert.Equal(t, wantLeaf, tree[:len(wantLeaf)], "leaf digests differ")

	// The leaf level tail is zero-filled.
	for i := len(wantLeaf); i < len(tree); i++ {
		require.Zero(t, tree[i], "tree[%d] not zero-filled", i)
	}

	// Root hash is the salted digest of the first chunk.
	md := sha256.New()
	md.Write(DefaultSalt)
	md.Write(tree[:types.ChunkSize])
	assert.Equal(t, md.Sum(nil), rootHash)
}

func TestGenerateTree_TwoLevels(t *testing.T) {
	// 130 pre-block chunks push the leaf level past one chunk of digests.
	apk, sig := buildTestApk(t, 130, 1, 200, 0)

	dataSize := int64(len(apk)) - sig.SigningBlockSize()
	levelOffset, err := CalculateLevelOffset(dataSize)
	require.NoError(t, err)
	require.Len(t, levelOffset, 3, "expected a two-level tree")

	rootHash, tree := generate(t, apk, sig)

	// Upper level digests are salted digests of the leaf level chunks.
	leaf := tree[levelOffset[1]:levelOffset[2]]
	var wantUpper []byte
	for off := 0; off < len(leaf); off += types.ChunkSize {
		md := sha256.New()
		md.Write(DefaultSalt)
		md.Write(leaf[off : off+types.ChunkSize])
		wantUpper = md.Sum(wantUpper)
	}
	assert.Equal(t, wantUpper, tree[:len(wantUpper)])

	md := sha256.New()
	md.Write(DefaultSalt)
	md.Write(tree[:types.ChunkSize])
	assert.Equal(t, md.Sum(nil), rootHash)
}

func TestGenerateTree_TamperDetection(t *testing.T) {
	apk, sig := buildTestApk(t, 2, 1, 100, 0)
	baseline, _ := generate(t, apk, sig)

	// Flipping a byte in hashed content changes the root hash.
	tampered := append([]byte(nil), apk...)
	tampered[100] ^= 0x01
	root, _ := generate(t, tampered, sig)
	assert.NotEqual(t, baseline, root, "tampering before the signing block went undetected")

	// Flipping a byte in the central directory changes it too.
	tampered = append([]byte(nil), apk...)
	tampered[sig.CentralDirOffset+10] ^= 0x01
	root, _ = generate(t, tampered, sig)
	assert.NotEqual(t, baseline, root, "tampering in the central directory went undetected")

	// A byte strictly inside the signing block is not covered.
	tampered = append([]byte(nil), apk...)
	tampered[sig.ApkSigningBlockOffset+512] ^= 0x01
	root, _ = generate(t, tampered, sig)
	assert.Equal(t, baseline, root, "signing block content must be excluded from the hash")
}

func TestGenerateTree_SigningBlockSizeInvariance(t *testing.T) {
	// Same content everywhere outside the signing block, same block start
	// offset, different block sizes.
	apkSmall, sigSmall := buildTestApk(t, 2, 1, 100, 0)
	apkLarge, sigLarge := buildTestApk(t, 2, 3, 100, 0)

	require.Equal(t, sigSmall.ApkSigningBlockOffset, sigLarge.ApkSigningBlockOffset)
	require.NotEqual(t, sigSmall.SigningBlockSize(), sigLarge.SigningBlockSize())

	rootSmall, _ := generate(t, apkSmall, sigSmall)
	rootLarge, _ := generate(t, apkLarge, sigLarge)
	assert.Equal(t, rootSmall, rootLarge,
		"root hash must not depend on the signing block size")
}

// failingSource fails the test if any read happens.
type failingSource struct {
	t    *testing.T
	size int64
}

func (f *failingSource) ReadAt(p []byte, off int64) (int, error) {
	f.t.Error("source was read despite failed preconditions")
	return 0, errors.New("unexpected read")
}

func (f *failingSource) Size() int64 { return f.size }

func TestGenerateTree_AlignmentPreconditions(t *testing.T) {
	tests := []struct {
		name string
		sig  types.SignatureInfo
	}{
		{
			"UnalignedBlockStart",
			types.SignatureInfo{ApkSigningBlockOffset: 100, CentralDirOffset: 8192, EocdOffset: 20480},
		},
		{
			"UnalignedBlockSize",
			types.SignatureInfo{ApkSigningBlockOffset: 4096, CentralDirOffset: 8292, EocdOffset: 20480},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := &failingSource{t: t, size: 1 << 20}
			levelOffset, err := CalculateLevelOffset(src.size)
			require.NoError(t, err)

			tree := make([]byte, levelOffset[len(levelOffset)-1])
			_, err = GenerateTree(src, tc.sig, DefaultSalt, levelOffset, tree)
			require.Error(t, err, "unaligned signing block must be rejected")
		})
	}
}
