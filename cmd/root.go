package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global output flags only
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "apkverity",
	Short: "apk-verity hash tree and descriptor generator",
	Long: `apkverity generates the 4k, SHA-256 based apk-verity hash tree and
on-disk descriptor for an installed APK.

The tree skips the APK Signing Block and substitutes the Central Directory
offset field of the ZIP End of Central Directory record, so the root hash
stays stable when the signing block is regenerated at a different size.

Commands:
  build      Generate the verity tree and descriptor for an APK
  roothash   Compute the externally-verifiable root hash
  inspect    Decode a generated verity descriptor
  locate     Print the signing block and EOCD offsets of an APK`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
}
