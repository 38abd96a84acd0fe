package zip

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/deploymenttheory/go-apkverity/internal/interfaces"
	"github.com/deploymenttheory/go-apkverity/internal/types"
)

var (
	// ErrEocdNotFound is returned when no End of Central Directory record
	// exists in the file.
	ErrEocdNotFound = errors.New("EOCD record not found")

	// ErrNoSigningBlock is returned when the central directory is not
	// preceded by an APK Signing Block.
	ErrNoSigningBlock = errors.New("no APK Signing Block before ZIP Central Directory")
)

// FindEocd locates the End of Central Directory record by scanning backwards
// from the end of the file, first assuming an empty comment and then
// re-scanning with the maximum comment size. It returns the EOCD offset and
// the central directory offset recorded in it.
func FindEocd(src interfaces.DataSource) (eocdOffset, centralDirOffset int64, err error) {
	if src.Size() < types.ZipEocdRecMinSize {
		return 0, 0, fmt.Errorf("file is too short for an EOCD record (%d bytes): %w",
			src.Size(), ErrEocdNotFound)
	}

	if eocdOffset, centralDirOffset, err = findEocdMaxCommentSize(src, 0); err == nil {
		return eocdOffset, centralDirOffset, nil
	}
	return findEocdMaxCommentSize(src, math.MaxUint16)
}

func findEocdMaxCommentSize(src interfaces.DataSource, maxCommentSize int) (int64, int64, error) {
	if limit := int(src.Size() - types.ZipEocdRecMinSize); maxCommentSize > limit {
		maxCommentSize = limit
	}

	buf := make([]byte, types.ZipEocdRecMinSize+maxCommentSize)
	bufOffsetInFile := src.Size() - int64(len(buf))
	if _, err := src.ReadAt(buf, bufOffsetInFile); err != nil && err != io.EOF {
		return 0, 0, err
	}

	if limit := len(buf) - types.ZipEocdRecMinSize; maxCommentSize > limit {
		maxCommentSize = limit
	}
	emptyCommentStart := len(buf) - types.ZipEocdRecMinSize

	for commentSize := 0; commentSize <= maxCommentSize; commentSize++ {
		pos := emptyCommentStart - commentSize
		if binary.LittleEndian.Uint32(buf[pos:pos+4]) != types.ZipEocdRecMagic {
			continue
		}
		recordCommentSize := binary.LittleEndian.Uint16(buf[pos+types.ZipEocdCommentSizeOffset:])
		if int(recordCommentSize) != commentSize {
			continue
		}

		eocdOffset := bufOffsetInFile + int64(pos)
		centralDirOffset := int64(binary.LittleEndian.Uint32(buf[pos+types.ZipEocdCentralDirOffsetFieldOffset:]))
		if centralDirOffset >= eocdOffset {
			return 0, 0, fmt.Errorf("ZIP Central Directory offset out of range: %d, EOCD offset: %d",
				centralDirOffset, eocdOffset)
		}

		centralDirSize := binary.LittleEndian.Uint32(buf[pos+types.ZipEocdCentralDirSizeOffset:])
		if centralDirOffset+int64(centralDirSize) != eocdOffset {
			return 0, 0, errors.New("ZIP Central Directory is not immediately followed by End of Central Directory")
		}
		return eocdOffset, centralDirOffset, nil
	}
	return 0, 0, ErrEocdNotFound
}

// FindApkSigningBlock locates the APK Signing Block immediately preceding
// the central directory and returns its start offset. The block's footer
// carries its size and a 16-byte magic.
func FindApkSigningBlock(src interfaces.DataSource, centralDirOffset int64) (int64, error) {
	if centralDirOffset < types.ApkSigBlockMinSize {
		return 0, ErrNoSigningBlock
	}

	footer := make([]byte, types.ApkSigBlockFooterSize)
	if _, err := src.ReadAt(footer, centralDirOffset-int64(len(footer))); err != nil && err != io.EOF {
		return 0, err
	}

	magic := []byte(types.ApkSigBlockMagicLo + types.ApkSigBlockMagicHi)
	if !bytes.Equal(footer[8:24], magic) {
		return 0, ErrNoSigningBlock
	}

	blockSizeFooter := binary.LittleEndian.Uint64(footer)
	if blockSizeFooter < uint64(len(footer)) || blockSizeFooter > math.MaxInt32-8 {
		return 0, fmt.Errorf("APK Signing Block size out of range: %d", blockSizeFooter)
	}

	// The size field does not count the leading 8-byte size-of-block field.
	totalSize := int64(blockSizeFooter) + 8
	offset := centralDirOffset - totalSize
	if offset < 0 {
		return 0, fmt.Errorf("APK Signing Block offset out of range: %d", offset)
	}

	var blockSizeHeader uint64
	head := make([]byte, 8)
	if _, err := src.ReadAt(head, offset); err != nil && err != io.EOF {
		return 0, err
	}
	blockSizeHeader = binary.LittleEndian.Uint64(head)
	if blockSizeHeader != blockSizeFooter {
		return 0, fmt.Errorf("APK Signing Block sizes in header and footer do not match: %d vs %d",
			blockSizeHeader, blockSizeFooter)
	}
	return offset, nil
}

// LocateSignature derives the SignatureInfo triple from a bare APK.
func LocateSignature(src interfaces.DataSource) (types.SignatureInfo, error) {
	eocdOffset, centralDirOffset, err := FindEocd(src)
	if err != nil {
		return types.SignatureInfo{}, err
	}
	signingBlockOffset, err := FindApkSigningBlock(src, centralDirOffset)
	if err != nil {
		return types.SignatureInfo{}, err
	}
	return types.SignatureInfo{
		ApkSigningBlockOffset: signingBlockOffset,
		CentralDirOffset:      centralDirOffset,
		EocdOffset:            eocdOffset,
	}, nil
}
