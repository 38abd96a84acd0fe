package device

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// FileDevice provides random access to an APK file on disk. It implements
// the DataSource contract the tree generator consumes.
type FileDevice struct {
	file *os.File
	path string
	size int64
}

// Config holds tool configuration loaded through Viper.
type Config struct {
	// OutputSuffix is appended to the APK path when writing the generated
	// verity data next to it.
	OutputSuffix string `mapstructure:"output_suffix"`

	// OverwriteExisting controls whether an existing output file is
	// replaced.
	OverwriteExisting bool `mapstructure:"overwrite_existing"`
}

// LoadConfig loads tool configuration using Viper.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("apkverity-config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("$HOME/.apkverity")
	viper.AddConfigPath("/etc/apkverity")

	// Set defaults
	viper.SetDefault("output_suffix", ".verity")
	viper.SetDefault("overwrite_existing", false)

	// Allow environment variables
	viper.SetEnvPrefix("APKVERITY")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// Open opens an APK file for reading.
func Open(path string) (*FileDevice, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open APK file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat APK file: %w", err)
	}

	return &FileDevice{
		file: file,
		path: path,
		size: stat.Size(),
	}, nil
}

// ReadAt implements io.ReaderAt over the file.
func (d *FileDevice) ReadAt(p []byte, off int64) (n int, err error) {
	return d.file.ReadAt(p, off)
}

// Size returns the file size in bytes.
func (d *FileDevice) Size() int64 {
	return d.size
}

// Path returns the path the device was opened from.
func (d *FileDevice) Path() string {
	return d.path
}

// Close closes the underlying file.
func (d *FileDevice) Close() error {
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}
