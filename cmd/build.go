package cmd

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-apkverity/internal/device"
	"github.com/deploymenttheory/go-apkverity/internal/zip"
	"github.com/deploymenttheory/go-apkverity/pkg/apkverity"
)

var buildOutputPath string

var buildCmd = &cobra.Command{
	Use:   "build <apk>",
	Short: "Generate the verity tree and descriptor for an APK",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		apkPath := args[0]

		config, err := device.LoadConfig()
		if err != nil {
			return err
		}

		sig, err := locateSignatureInfo(apkPath)
		if err != nil {
			return err
		}

		result, err := apkverity.GenerateApkVerity(apkPath, apkverity.HeapBufferFactory{}, sig)
		if err != nil {
			return err
		}

		outPath := buildOutputPath
		if outPath == "" {
			outPath = apkPath + config.OutputSuffix
		}
		if !config.OverwriteExisting {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("output file already exists: %s", outPath)
			}
		}
		if err := os.WriteFile(outPath, result.VerityData, 0o644); err != nil {
			return fmt.Errorf("failed to write verity data: %w", err)
		}

		if !quiet {
			fmt.Printf("root hash: %s\n", hex.EncodeToString(result.RootHash))
			if verbose {
				fmt.Printf("tree size: %d bytes\n", result.TreeSize)
				fmt.Printf("verity data: %d bytes -> %s\n", len(result.VerityData), outPath)
			}
		}
		return nil
	},
}

// locateSignatureInfo opens the APK and derives the signing block, central
// directory, and EOCD offsets.
func locateSignatureInfo(apkPath string) (apkverity.SignatureInfo, error) {
	apk, err := device.Open(apkPath)
	if err != nil {
		return apkverity.SignatureInfo{}, err
	}
	defer apk.Close()
	return zip.LocateSignature(apk)
}

func init() {
	buildCmd.Flags().StringVar(&buildOutputPath, "out", "", "output path (default: <apk> + configured suffix)")
	rootCmd.AddCommand(buildCmd)
}
