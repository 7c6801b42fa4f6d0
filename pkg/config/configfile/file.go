package configfile

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
)

// ConfigFile ~/.pkgmk/config.json file info
type ConfigFile struct {
	Filename         string `json:"-"` // Note: for internal use only
	SrcDest          string `json:"srcDest,omitempty"`
	BuildDir         string `json:"buildDir,omitempty"`
	PkgDest          string `json:"pkgDest,omitempty"`
	Packager         string `json:"packager,omitempty"`
	FetchConcurrency int    `json:"fetchConcurrency,omitempty"`
	FetchTimeout     string `json:"fetchTimeout,omitempty"`
}

// New initializes an empty configuration file for the given filename 'fn'
func New(fn string) *ConfigFile {
	return &ConfigFile{
		Filename: fn,
	}
}

// LoadFromReader reads the configuration data given and populates the
// receiver object
func (configFile *ConfigFile) LoadFromReader(configData io.Reader) error {
	if err := json.NewDecoder(configData).Decode(configFile); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	if configFile.FetchConcurrency < 0 {
		return errors.Errorf("fetchConcurrency must not be negative, got %d", configFile.FetchConcurrency)
	}
	if _, err := configFile.Timeout(); err != nil {
		return err
	}

	return nil
}

// Timeout parses FetchTimeout. An empty value means no timeout.
func (configFile *ConfigFile) Timeout() (time.Duration, error) {
	if configFile.FetchTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(configFile.FetchTimeout)
	if err != nil {
		return 0, errors.Wrap(err, "invalid fetchTimeout")
	}
	return d, nil
}

// SaveToWriter encodes and writes out the configuration to the given writer
func (configFile *ConfigFile) SaveToWriter(writer io.Writer) error {
	data, err := json.MarshalIndent(configFile, "", "\t")
	if err != nil {
		return err
	}
	_, err = writer.Write(data)
	return err
}

// Save encodes and atomically writes out the configuration
func (configFile *ConfigFile) Save() error {
	if configFile.Filename == "" {
		return errors.Errorf("Can't save config with empty filename")
	}

	var buf bytes.Buffer
	if err := configFile.SaveToWriter(&buf); err != nil {
		return err
	}

	// Handle situation where the configfile is a symlink
	cfgFile := configFile.Filename
	if f, err := os.Readlink(cfgFile); err == nil {
		cfgFile = f
	}

	if err := os.MkdirAll(filepath.Dir(cfgFile), 0o700); err != nil {
		return err
	}

	return renameio.WriteFile(cfgFile, buf.Bytes(), 0o600)
}

// GetFilename returns the file name that this config file is based on.
func (configFile *ConfigFile) GetFilename() string {
	return configFile.Filename
}
