package descriptor

import (
	"encoding/binary"
	"fmt"

	"github.com/deploymenttheory/go-apkverity/internal/helpers"
	"github.com/deploymenttheory/go-apkverity/internal/interfaces"
	"github.com/deploymenttheory/go-apkverity/internal/types"
)

// descriptorReader implements the DescriptorReader interface
type descriptorReader struct {
	header *types.ApkVerityHeaderT
	elide  *types.FsverityExtensionElideT
	patch  *types.FsverityExtensionPatchT
}

// NewDescriptorReader parses an encoded apk-verity descriptor (header plus
// authenticated extensions) and returns a DescriptorReader over it.
func NewDescriptorReader(data []byte, endian binary.ByteOrder) (interfaces.DescriptorReader, error) {
	if len(data) < types.VerityHeaderSize {
		return nil, fmt.Errorf("data too small for verity header: %d bytes", len(data))
	}

	br := helpers.NewBinaryReader(data, endian)

	header, err := parseHeader(br)
	if err != nil {
		return nil, fmt.Errorf("failed to parse verity header: %w", err)
	}

	r := &descriptorReader{header: header}
	for i := 0; i < int(header.AuthExtensionCount); i++ {
		if err := r.parseExtension(br); err != nil {
			return nil, fmt.Errorf("failed to parse extension %d: %w", i+1, err)
		}
	}
	return r, nil
}

func parseHeader(br *helpers.BinaryReader) (*types.ApkVerityHeaderT, error) {
	header := &types.ApkVerityHeaderT{}

	magic, err := br.ReadBytes(8)
	if err != nil {
		return nil, err
	}
	copy(header.Magic[:], magic)

	if header.MajorVersion, err = br.ReadUint8(); err != nil {
		return nil, err
	}
	if header.MinorVersion, err = br.ReadUint8(); err != nil {
		return nil, err
	}
	if header.Log2BlockSize, err = br.ReadUint8(); err != nil {
		return nil, err
	}
	if header.Log2LeavesPerNode, err = br.ReadUint8(); err != nil {
		return nil, err
	}
	if header.MetaAlgorithm, err = br.ReadUint16(); err != nil {
		return nil, err
	}
	if header.DataAlgorithm, err = br.ReadUint16(); err != nil {
		return nil, err
	}
	if header.Flags, err = br.ReadUint32(); err != nil {
		return nil, err
	}
	if header.Reserved1, err = br.ReadUint32(); err != nil {
		return nil, err
	}
	if header.FileSize, err = br.ReadUint64(); err != nil {
		return nil, err
	}
	if header.AuthExtensionCount, err = br.ReadUint8(); err != nil {
		return nil, err
	}
	if header.UnauthExtCount, err = br.ReadUint8(); err != nil {
		return nil, err
	}

	salt, err := br.ReadBytes(types.SaltSize)
	if err != nil {
		return nil, err
	}
	copy(header.Salt[:], salt)

	if err := br.Skip(22); err != nil {
		return nil, err
	}
	return header, nil
}

// parseExtension decodes one extension record, including its trailing
// alignment padding.
func (r *descriptorReader) parseExtension(br *helpers.BinaryReader) error {
	start := br.Offset()

	size, err := br.ReadUint32()
	if err != nil {
		return err
	}
	if size < types.ExtensionHeaderSize {
		return fmt.Errorf("extension size %d smaller than extension header", size)
	}

	id, err := br.ReadUint16()
	if err != nil {
		return err
	}
	if err := br.Skip(2); err != nil { // reserved
		return err
	}

	switch id {
	case types.ExtensionIDElide:
		if size != types.ExtensionHeaderSize+types.ElideExtensionPayloadSize {
			return fmt.Errorf("unexpected elide extension size: %d", size)
		}
		elide := &types.FsverityExtensionElideT{}
		if elide.Offset, err = br.ReadUint64(); err != nil {
			return err
		}
		if elide.Length, err = br.ReadUint64(); err != nil {
			return err
		}
		r.elide = elide

	case types.ExtensionIDPatch:
		patch := &types.FsverityExtensionPatchT{}
		if patch.Offset, err = br.ReadUint64(); err != nil {
			return err
		}
		payload := int(size) - types.ExtensionHeaderSize - types.PatchExtensionOffsetSize
		if payload < 0 {
			return fmt.Errorf("unexpected patch extension size: %d", size)
		}
		if patch.Databytes, err = br.ReadBytes(payload); err != nil {
			return err
		}
		r.patch = patch

	default:
		return fmt.Errorf("unknown extension id: %d", id)
	}

	// Records are padded to 8-byte alignment.
	consumed := br.Offset() - start
	if rem := consumed % types.ExtensionAlignment; rem != 0 {
		if err := br.Skip(types.ExtensionAlignment - rem); err != nil {
			return err
		}
	}
	return nil
}

// DescriptorReader interface methods

func (r *descriptorReader) Magic() string {
	return string(r.header.Magic[:])
}

func (r *descriptorReader) Version() (major, minor uint8) {
	return r.header.MajorVersion, r.header.MinorVersion
}

func (r *descriptorReader) BlockSize() uint32 {
	return 1 << r.header.Log2BlockSize
}

func (r *descriptorReader) LeavesPerNode() uint32 {
	return 1 << r.header.Log2LeavesPerNode
}

func (r *descriptorReader) MetaAlgorithm() uint16 {
	return r.header.MetaAlgorithm
}

func (r *descriptorReader) DataAlgorithm() uint16 {
	return r.header.DataAlgorithm
}

func (r *descriptorReader) FileSize() uint64 {
	return r.header.FileSize
}

func (r *descriptorReader) Salt() []byte {
	return r.header.Salt[:]
}

func (r *descriptorReader) AuthenticatedExtensionCount() uint8 {
	return r.header.AuthExtensionCount
}

func (r *descriptorReader) ElidedRange() (offset, length uint64) {
	if r.elide == nil {
		return 0, 0
	}
	return r.elide.Offset, r.elide.Length
}

func (r *descriptorReader) PatchedOffset() uint64 {
	if r.patch == nil {
		return 0
	}
	return r.patch.Offset
}

func (r *descriptorReader) PatchBytes() []byte {
	if r.patch == nil {
		return nil
	}
	return r.patch.Databytes
}

func (r *descriptorReader) IsMagicValid() bool {
	return string(r.header.Magic[:]) == types.VerityMagic
}

func (r *descriptorReader) IsVersionSupported() bool {
	return r.header.MajorVersion == types.VerityVersionMajor &&
		r.header.MinorVersion == types.VerityVersionMinor
}
