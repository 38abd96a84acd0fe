package interfaces

// DescriptorReader provides access to a decoded apk-verity descriptor (the
// header plus its authenticated extensions).
type DescriptorReader interface {
	// Magic returns the 8-byte magic string from the header.
	Magic() string

	// Version returns the major and minor format version.
	Version() (major, minor uint8)

	// BlockSize returns the tree block size derived from the header's
	// log2(block-size) field.
	BlockSize() uint32

	// LeavesPerNode returns the fan-out derived from the header's
	// log2(leaves-per-node) field.
	LeavesPerNode() uint32

	// MetaAlgorithm returns the metadata digest algorithm identifier.
	MetaAlgorithm() uint16

	// DataAlgorithm returns the data digest algorithm identifier.
	DataAlgorithm() uint16

	// FileSize returns the original file size recorded in the header.
	FileSize() uint64

	// Salt returns the 8-byte digest salt.
	Salt() []byte

	// AuthenticatedExtensionCount returns the number of authenticated
	// extensions.
	AuthenticatedExtensionCount() uint8

	// ElidedRange returns the byte range excluded from hashing.
	ElidedRange() (offset, length uint64)

	// PatchedOffset returns the absolute offset of the substituted field.
	PatchedOffset() uint64

	// PatchBytes returns the substituted field content.
	PatchBytes() []byte

	// IsMagicValid checks the header magic.
	IsMagicValid() bool

	// IsVersionSupported checks the format version.
	IsVersionSupported() bool
}
