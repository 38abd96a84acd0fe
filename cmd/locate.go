package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-apkverity/internal/types"
)

var locateCmd = &cobra.Command{
	Use:   "locate <apk>",
	Short: "Print the signing block and EOCD offsets of an APK",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sig, err := locateSignatureInfo(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("signing block offset:   %d\n", sig.ApkSigningBlockOffset)
		fmt.Printf("central dir offset:     %d\n", sig.CentralDirOffset)
		fmt.Printf("eocd offset:            %d\n", sig.EocdOffset)
		fmt.Printf("signing block size:     %d\n", sig.SigningBlockSize())

		if verbose {
			aligned := "yes"
			if err := sig.CheckChunkAligned(); err != nil {
				aligned = fmt.Sprintf("no (%v)", err)
			}
			fmt.Printf("chunk aligned (%d):   %s\n", types.ChunkSize, aligned)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(locateCmd)
}
