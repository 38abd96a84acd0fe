package descriptor

import (
	"bytes"
	"encoding/binary"
	"testing"

	builders "github.com/deploymenttheory/go-apkverity/internal/builders/descriptor"
	"github.com/deploymenttheory/go-apkverity/internal/types"
)

func buildValidDescriptor(t *testing.T) []byte {
	t.Helper()
	sig := types.SignatureInfo{
		ApkSigningBlockOffset: 4096,
		CentralDirOffset:      12288,
		EocdOffset:            20480,
	}
	footer, err := builders.BuildFooter(0x567890, make([]byte, 8), sig)
	if err != nil {
		t.Fatalf("BuildFooter failed: %v", err)
	}
	return footer
}

func TestDescriptorReader_RoundTrip(t *testing.T) {
	data := buildValidDescriptor(t)

	reader, err := NewDescriptorReader(data, binary.LittleEndian)
	if err != nil {
		t.Fatalf("NewDescriptorReader failed: %v", err)
	}

	if !reader.IsMagicValid() {
		t.Errorf("IsMagicValid() = false, magic %q", reader.Magic())
	}
	if !reader.IsVersionSupported() {
		major, minor := reader.Version()
		t.Errorf("IsVersionSupported() = false for version %d.%d", major, minor)
	}
	if reader.BlockSize() != 4096 {
		t.Errorf("BlockSize() = %d, want 4096", reader.BlockSize())
	}
	if reader.LeavesPerNode() != 128 {
		t.Errorf("LeavesPerNode() = %d, want 128", reader.LeavesPerNode())
	}
	if reader.MetaAlgorithm() != types.HashAlgorithmSha256 {
		t.Errorf("MetaAlgorithm() = %d, want %d", reader.MetaAlgorithm(), types.HashAlgorithmSha256)
	}
	if reader.DataAlgorithm() != types.HashAlgorithmSha256 {
		t.Errorf("DataAlgorithm() = %d, want %d", reader.DataAlgorithm(), types.HashAlgorithmSha256)
	}
	if reader.FileSize() != 0x567890 {
		t.Errorf("FileSize() = %#x, want 0x567890", reader.FileSize())
	}
	if !bytes.Equal(reader.Salt(), make([]byte, 8)) {
		t.Errorf("Salt() = %x, want all zero", reader.Salt())
	}
	if reader.AuthenticatedExtensionCount() != 2 {
		t.Errorf("AuthenticatedExtensionCount() = %d, want 2", reader.AuthenticatedExtensionCount())
	}

	offset, length := reader.ElidedRange()
	if offset != 4096 {
		t.Errorf("elided offset = %d, want 4096", offset)
	}
	if length != 8192 {
		t.Errorf("elided length = %d, want 8192", length)
	}

	wantPatched := uint64(20480 + types.ZipEocdCentralDirOffsetFieldOffset)
	if reader.PatchedOffset() != wantPatched {
		t.Errorf("PatchedOffset() = %d, want %d", reader.PatchedOffset(), wantPatched)
	}
	if got := binary.LittleEndian.Uint32(reader.PatchBytes()); got != 4096 {
		t.Errorf("patch payload = %d, want 4096", got)
	}
}

func TestDescriptorReader_BadMagic(t *testing.T) {
	data := buildValidDescriptor(t)
	copy(data[0:8], "Stale Al")

	reader, err := NewDescriptorReader(data, binary.LittleEndian)
	if err != nil {
		t.Fatalf("NewDescriptorReader failed: %v", err)
	}
	if reader.IsMagicValid() {
		t.Error("IsMagicValid() = true for corrupted magic")
	}
}

func TestDescriptorReader_UnknownExtension(t *testing.T) {
	data := buildValidDescriptor(t)
	// Overwrite the elide extension id.
	binary.LittleEndian.PutUint16(data[types.VerityHeaderSize+4:], 99)

	if _, err := NewDescriptorReader(data, binary.LittleEndian); err == nil {
		t.Fatal("expected error for unknown extension id, got nil")
	}
}

func TestDescriptorReader_ErrorCases(t *testing.T) {
	valid := buildValidDescriptor(t)

	tests := []struct {
		name      string
		dataSize  int
		shouldErr bool
	}{
		{"Valid", len(valid), false},
		{"HeaderOnlyMissingExtensions", 64, true},
		{"TruncatedHeader", 40, true},
		{"TruncatedExtension", 80, true},
		{"Empty", 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewDescriptorReader(valid[:tc.dataSize], binary.LittleEndian)
			if tc.shouldErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tc.shouldErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
