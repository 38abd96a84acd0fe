package types

// ApkVerityHeaderT mirrors the fixed 64-byte on-disk verity header. All
// multi-byte fields are little-endian.
type ApkVerityHeaderT struct {
	Magic              [8]byte
	MajorVersion       uint8
	MinorVersion       uint8
	Log2BlockSize      uint8
	Log2LeavesPerNode  uint8
	MetaAlgorithm      uint16
	DataAlgorithm      uint16
	Flags              uint32
	Reserved1          uint32
	FileSize           uint64
	AuthExtensionCount uint8
	UnauthExtCount     uint8
	Salt               [8]byte
	Reserved2          [22]byte
}

// FsverityExtensionT is the common 8-byte extension header preceding every
// extension payload.
type FsverityExtensionT struct {
	Size     uint32
	ID       uint16
	Reserved uint16
}

// FsverityExtensionElideT describes a byte range excluded from hashing.
type FsverityExtensionElideT struct {
	Offset uint64
	Length uint64
}

// FsverityExtensionPatchT describes a byte range whose bytes are replaced
// before hashing. Databytes is variable length on disk; here it is always the
// 4-byte substituted central directory offset.
type FsverityExtensionPatchT struct {
	Offset    uint64
	Databytes []byte
}
