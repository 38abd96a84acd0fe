package interfaces

import "io"

// DataSource provides random access to a byte region of known size. File
// regions and in-memory tree levels are both fed to the digester through this
// interface.
type DataSource interface {
	io.ReaderAt

	// Size returns the total number of bytes the source exposes.
	Size() int64
}

// DataDigester consumes a byte stream in arbitrary batches.
type DataDigester interface {
	// Consume digests the given bytes. Batch boundaries carry no meaning;
	// the digester does its own windowing.
	Consume(p []byte) error
}
