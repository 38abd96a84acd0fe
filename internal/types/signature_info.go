package types

import "fmt"

// SignatureInfo carries the three byte offsets the signing-block locator
// derives from an APK: the start of the APK Signing Block, the start of the
// ZIP central directory, and the start of the End of Central Directory
// record. The signing block occupies [ApkSigningBlockOffset, CentralDirOffset).
type SignatureInfo struct {
	ApkSigningBlockOffset int64
	CentralDirOffset      int64
	EocdOffset            int64
}

// SigningBlockSize returns the size of the excluded signing block region.
func (s SignatureInfo) SigningBlockSize() int64 {
	return s.CentralDirOffset - s.ApkSigningBlockOffset
}

// CheckChunkAligned verifies the alignment preconditions the tree format
// requires: the signing block must start on a chunk boundary and span whole
// chunks. A violation indicates a caller bug in locating the block and is not
// recoverable.
func (s SignatureInfo) CheckChunkAligned() error {
	if s.ApkSigningBlockOffset%ChunkSize != 0 {
		return fmt.Errorf("APK Signing Block does not start at the page boundary: %d",
			s.ApkSigningBlockOffset)
	}
	if s.SigningBlockSize()%ChunkSize != 0 {
		return fmt.Errorf("size of APK Signing Block is not a multiple of %d: %d",
			ChunkSize, s.SigningBlockSize())
	}
	return nil
}
