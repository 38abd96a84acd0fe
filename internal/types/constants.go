package types

// Layout constants for the apk-verity hash tree and descriptor. These are
// consumed by kernel-side verification and must not drift.
const (
	// ChunkSize is the alignment unit for tree levels and digest windows,
	// matching the typical Linux block size.
	ChunkSize = 4096

	// DigestSize is the size of a single SHA-256 digest.
	DigestSize = 32

	// VerityHeaderSize is the fixed size of the on-disk verity header.
	VerityHeaderSize = 64

	// SaltSize is the required salt length in bytes.
	SaltSize = 8

	// MaxFooterSize bounds the descriptor (header + extensions + trailing
	// back-offset) appended after the tree.
	MaxFooterSize = ChunkSize
)

// ZIP End of Central Directory constants. The central directory offset field
// sits at a fixed position inside the EOCD record.
const (
	ZipEocdRecMinSize                  = 22
	ZipEocdRecMagic                    = 0x06054b50
	ZipEocdCommentSizeOffset           = 20
	ZipEocdCentralDirSizeOffset        = 12
	ZipEocdCentralDirOffsetFieldOffset = 16
	ZipEocdCentralDirOffsetFieldSize   = 4
)

// Verity header field values.
const (
	VerityMagic        = "TrueBrew"
	VerityVersionMajor = 1
	VerityVersionMinor = 0

	// Log2BlockSize is log2(ChunkSize).
	Log2BlockSize = 12

	// Log2LeavesPerNode is log2(ChunkSize / DigestSize).
	Log2LeavesPerNode = 7

	// HashAlgorithmSha256 identifies SHA-256 in the meta and data algorithm
	// fields.
	HashAlgorithmSha256 = 1
)

// Extension record constants.
const (
	ExtensionHeaderSize = 8
	ExtensionAlignment  = 8

	// ExtensionIDElide marks a byte range excluded from hashing.
	ExtensionIDElide = 1

	// ExtensionIDPatch marks a byte range whose content is substituted
	// before hashing.
	ExtensionIDPatch = 2

	ElideExtensionPayloadSize = 16
	PatchExtensionOffsetSize  = 8
)

// APK Signing Block constants used by the locator.
const (
	ApkSigBlockMagicLo    = "APK Sig "
	ApkSigBlockMagicHi    = "Block 42"
	ApkSigBlockMinSize    = 32
	ApkSigBlockFooterSize = 24
)
