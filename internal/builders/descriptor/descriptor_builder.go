package descriptor

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-apkverity/internal/helpers"
	"github.com/deploymenttheory/go-apkverity/internal/types"
)

// BuildHeader encodes the fixed 64-byte apk-verity header. The salt must be
// exactly 8 bytes.
func BuildHeader(fileSize uint64, salt []byte) ([]byte, error) {
	if len(salt) != types.SaltSize {
		return nil, fmt.Errorf("salt is not %d bytes long: %d", types.SaltSize, len(salt))
	}

	bw := helpers.NewBinaryWriter(binary.LittleEndian)

	bw.PutBytes([]byte(types.VerityMagic))

	bw.PutUint8(types.VerityVersionMajor)
	bw.PutUint8(types.VerityVersionMinor)
	bw.PutUint8(types.Log2BlockSize)
	bw.PutUint8(types.Log2LeavesPerNode)

	bw.PutUint16(types.HashAlgorithmSha256) // meta algorithm
	bw.PutUint16(types.HashAlgorithmSha256) // data algorithm

	bw.PutUint32(0) // flags
	bw.PutUint32(0) // reserved

	bw.PutUint64(fileSize)

	bw.PutUint8(2) // authenticated extension count
	bw.PutUint8(0) // unauthenticated extension count
	bw.PutBytes(salt)
	bw.PutZeros(22) // reserved

	out := bw.Bytes()
	if len(out) != types.VerityHeaderSize {
		return nil, fmt.Errorf("encoded header has unexpected length %d", len(out))
	}
	return out, nil
}

// BuildExtensions encodes the two authenticated extensions: the elide
// extension covering the signing block and the patch extension substituting
// the EOCD central directory offset field. Each record is padded to 8-byte
// alignment.
func BuildExtensions(signingBlockOffset, signingBlockSize, eocdOffset int64) []byte {
	bw := helpers.NewBinaryWriter(binary.LittleEndian)

	// Elide extension: the signing block byte range excluded from hashing.
	bw.PutUint32(types.ExtensionHeaderSize + types.ElideExtensionPayloadSize)
	bw.PutUint16(types.ExtensionIDElide)
	bw.PutZeros(2) // reserved
	bw.PutUint64(uint64(signingBlockOffset))
	bw.PutUint64(uint64(signingBlockSize))

	// Patch extension: the central directory offset field is replaced by the
	// signing block's start offset.
	totalSize := types.ExtensionHeaderSize + types.PatchExtensionOffsetSize +
		types.ZipEocdCentralDirOffsetFieldSize
	bw.PutUint32(uint32(totalSize))
	bw.PutUint16(types.ExtensionIDPatch)
	bw.PutZeros(2) // reserved
	bw.PutUint64(uint64(eocdOffset + types.ZipEocdCentralDirOffsetFieldOffset))
	bw.PutUint32(uint32(signingBlockOffset))
	bw.PadToAlignment(types.ExtensionAlignment)

	return bw.Bytes()
}

// BuildFooter encodes the header followed by the extensions. The trailing
// backward offset to the header start is appended separately by the caller
// that knows the final layout.
func BuildFooter(fileSize int64, salt []byte, sig types.SignatureInfo) ([]byte, error) {
	header, err := BuildHeader(uint64(fileSize), salt)
	if err != nil {
		return nil, err
	}
	extensions := BuildExtensions(sig.ApkSigningBlockOffset, sig.SigningBlockSize(), sig.EocdOffset)
	return append(header, extensions...), nil
}
