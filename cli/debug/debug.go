package debug

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Enable sets the PKGMK_DEBUG env var to true
// and makes the logger to log at debug level.
func Enable() {
	os.Setenv("PKGMK_DEBUG", "1")
	logrus.SetLevel(logrus.DebugLevel)
}

// Disable sets the PKGMK_DEBUG env var to false
// and makes the logger to log at info level.
func Disable() {
	os.Setenv("PKGMK_DEBUG", "")
	logrus.SetLevel(logrus.InfoLevel)
}

// IsEnabled checks whether the debug flag is set or not.
func IsEnabled() bool {
	return os.Getenv("PKGMK_DEBUG") != ""
}
