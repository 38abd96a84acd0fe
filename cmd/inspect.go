package cmd

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-apkverity/internal/parsers/descriptor"
	"github.com/deploymenttheory/go-apkverity/internal/types"
)

var inspectRaw bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <verity-file>",
	Short: "Decode a generated verity descriptor",
	Long: `Decodes the verity header and extensions from a generated verity file.

By default the descriptor is located through the trailing backward offset at
the end of the file. With --raw, the file is treated as a bare descriptor
starting at offset 0.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		if !inspectRaw {
			if len(data) < 4 {
				return fmt.Errorf("file too small for a verity trailer: %d bytes", len(data))
			}
			backOffset := binary.LittleEndian.Uint32(data[len(data)-4:])
			if int(backOffset) > len(data) || backOffset < 4 {
				return fmt.Errorf("trailing backward offset out of range: %d", backOffset)
			}
			data = data[len(data)-int(backOffset):]
		}

		reader, err := descriptor.NewDescriptorReader(data, binary.LittleEndian)
		if err != nil {
			return err
		}

		if !reader.IsMagicValid() {
			return fmt.Errorf("bad descriptor magic: %q", reader.Magic())
		}
		major, minor := reader.Version()
		if !reader.IsVersionSupported() {
			return fmt.Errorf("unsupported descriptor version: %d.%d", major, minor)
		}

		elideOffset, elideLength := reader.ElidedRange()
		fmt.Printf("magic:            %s\n", reader.Magic())
		fmt.Printf("version:          %d.%d\n", major, minor)
		fmt.Printf("block size:       %d\n", reader.BlockSize())
		fmt.Printf("leaves per node:  %d\n", reader.LeavesPerNode())
		fmt.Printf("meta algorithm:   %d\n", reader.MetaAlgorithm())
		fmt.Printf("data algorithm:   %d\n", reader.DataAlgorithm())
		fmt.Printf("file size:        %d\n", reader.FileSize())
		fmt.Printf("salt:             %s\n", hex.EncodeToString(reader.Salt()))
		fmt.Printf("auth extensions:  %d\n", reader.AuthenticatedExtensionCount())
		fmt.Printf("elided range:     [%d, %d)\n", elideOffset, elideOffset+elideLength)
		fmt.Printf("patched offset:   %d\n", reader.PatchedOffset())
		fmt.Printf("patch bytes:      %s\n", hex.EncodeToString(reader.PatchBytes()))

		if verbose && len(reader.PatchBytes()) == types.ZipEocdCentralDirOffsetFieldSize {
			fmt.Printf("substituted central dir offset: %d\n",
				binary.LittleEndian.Uint32(reader.PatchBytes()))
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectRaw, "raw", false, "treat the input as a bare descriptor without trailer")
	rootCmd.AddCommand(inspectCmd)
}
