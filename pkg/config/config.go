// Package config locates and loads the pkgmk configuration file and
// resolves the directories a build uses.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"pkgmk/pkg/config/configfile"

	"github.com/pkg/errors"
)

const (
	// EnvOverrideConfigDir is the name of the environment variable that can be
	// used to override the location of the client configuration files (~/.pkgmk).
	EnvOverrideConfigDir = "PKGMK_CONFIG"

	// ConfigFileName is the name of the client configuration file inside the
	// config-directory.
	ConfigFileName = "config.json"
	configFileDir  = ".pkgmk"
)

var (
	initConfigDir = new(sync.Once)
	configDir     string
)

// resetConfigDir is used in testing to reset the "configDir" package variable
// and its sync.Once to force re-lookup between tests.
func resetConfigDir() {
	configDir = ""
	initConfigDir = new(sync.Once)
}

func getHomeDir() string {
	home, _ := os.UserHomeDir()
	return home
}

// Dir returns the directory the configuration file is stored in
func Dir() string {
	initConfigDir.Do(func() {
		configDir = os.Getenv(EnvOverrideConfigDir)
		if configDir == "" {
			configDir = filepath.Join(getHomeDir(), configFileDir)
		}
	})
	return configDir
}

// SetDir sets the directory the configuration file is stored in
func SetDir(dir string) {
	// trigger the sync.Once to synchronise with Dir()
	initConfigDir.Do(func() {})
	configDir = filepath.Clean(dir)
}

// Load reads the configuration file ([ConfigFileName]) from the given directory.
// If no directory is given, [Dir] is used. A missing file yields an empty
// configuration.
func Load(dir string) (*configfile.ConfigFile, error) {
	if dir == "" {
		dir = Dir()
	}

	filename := filepath.Join(dir, ConfigFileName)
	configFile := configfile.New(filename)

	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return configFile, nil
		}
		return configFile, err
	}
	defer file.Close()

	if err := configFile.LoadFromReader(file); err != nil {
		return configFile, errors.Wrap(err, filename)
	}
	return configFile, nil
}

// LoadDefaultConfigFile attempts to load the default config file and returns
// a reference to the ConfigFile struct. If none is found or when failing to load
// the configuration file, it initializes a default ConfigFile struct. If no
// error is returned, the CLI uses the result; otherwise a warning is printed
// to stderr.
func LoadDefaultConfigFile(stderr io.Writer) *configfile.ConfigFile {
	configFile, err := Load(Dir())
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "WARNING: Error", err)
		return configfile.New(configFile.Filename)
	}
	return configFile
}
