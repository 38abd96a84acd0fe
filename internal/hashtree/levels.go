package hashtree

import (
	"errors"
	"math"

	"github.com/deploymenttheory/go-apkverity/internal/types"
)

// ErrTreeTooLarge is returned when the computed tree would exceed the 32-bit
// signed size the on-disk format supports.
var ErrTreeTooLarge = errors.New("verity tree size exceeds 32-bit signed range")

// CalculateLevelOffset returns the summed area table of level sizes in the
// verity tree: the byte offset of each level in the tree, root first, plus a
// trailing entry equal to the total tree size. The returned slice always has
// at least 2 entries, even for empty input.
func CalculateLevelOffset(dataSize int64) ([]int64, error) {
	var levelSize []int64
	for {
		levelDigestSize := divideRoundup(dataSize, types.ChunkSize) * types.DigestSize
		chunksSize := types.ChunkSize * divideRoundup(levelDigestSize, types.ChunkSize)
		levelSize = append(levelSize, chunksSize)
		if levelDigestSize <= types.ChunkSize {
			break
		}
		dataSize = levelDigestSize
	}

	// Reverse and convert to a summed area table.
	levelOffset := make([]int64, len(levelSize)+1)
	for i := 0; i < len(levelSize); i++ {
		size := levelSize[len(levelSize)-i-1]
		levelOffset[i+1] = levelOffset[i] + size
		if levelOffset[i+1] > math.MaxInt32 {
			return nil, ErrTreeTooLarge
		}
	}
	return levelOffset, nil
}

// divideRoundup divides and rounds up to the closest integer.
func divideRoundup(dividend, divisor int64) int64 {
	return (dividend + divisor - 1) / divisor
}
