package interfaces

// ByteBufferFactory supplies the output allocation for tree generation. The
// caller decides where the bytes live (heap, mmap region); the generator only
// writes into the returned slice and never reallocates it.
type ByteBufferFactory interface {
	// Create allocates a writable region of exactly size bytes.
	Create(size int) ([]byte, error)
}
