package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-apkverity/internal/device"
	"github.com/deploymenttheory/go-apkverity/pkg/apkverity"
)

var roothashDigest string

var roothashCmd = &cobra.Command{
	Use:   "roothash <apk>",
	Short: "Compute the externally-verifiable root hash",
	Long: `Computes the apk-verity root hash for integrity measurement.

By default the full tree is generated in memory. With --digest, only the
descriptor is built and the root hash is computed from the supplied
hex-encoded whole-file digest.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		apkPath := args[0]

		sig, err := locateSignatureInfo(apkPath)
		if err != nil {
			return err
		}

		var rootHash []byte
		if roothashDigest != "" {
			apkDigest, err := hex.DecodeString(roothashDigest)
			if err != nil {
				return fmt.Errorf("invalid --digest value: %w", err)
			}
			apk, err := device.Open(apkPath)
			if err != nil {
				return err
			}
			size := apk.Size()
			apk.Close()

			rootHash, err = apkverity.GenerateApkVerityRootHash(size, apkDigest, sig)
			if err != nil {
				return err
			}
		} else {
			result, err := apkverity.GenerateApkVerity(apkPath, apkverity.HeapBufferFactory{}, sig)
			if err != nil {
				return err
			}
			rootHash = result.RootHash
		}

		fmt.Println(hex.EncodeToString(rootHash))
		return nil
	},
}

func init() {
	roothashCmd.Flags().StringVar(&roothashDigest, "digest", "", "hex-encoded precomputed whole-file digest")
	rootCmd.AddCommand(roothashCmd)
}
