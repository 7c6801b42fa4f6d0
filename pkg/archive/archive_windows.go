package archive

import (
	"os"
	"strings"
	"time"
)

// longPathPrefix is the longpath prefix for Windows file paths.
const longPathPrefix = `\\?\`

// addLongPathPrefix adds the Windows long path prefix to the path provided if
// it does not already have it. It is a no-op on platforms other than Windows.
func addLongPathPrefix(srcPath string) string {
	if strings.HasPrefix(srcPath, longPathPrefix) {
		return srcPath
	}
	if strings.HasPrefix(srcPath, `\\`) {
		// This is a UNC path, so we need to add 'UNC' to the path as well.
		return longPathPrefix + `UNC` + srcPath[1:]
	}
	return longPathPrefix + srcPath
}

func chmodTarEntry(perm os.FileMode) os.FileMode {
	// Windows has no notion of group/world bits; mark everything
	// executable the way most Windows archivers do.
	return perm | 0o111
}

func getInodeFromStat(stat interface{}) (inode uint64, err error) {
	// do nothing. no notion of Inode in stat on Windows
	return
}

func hasHardlinks(fi os.FileInfo) bool {
	return false
}

func chtimes(name string, atime time.Time, mtime time.Time) error {
	return os.Chtimes(name, atime, mtime)
}

func lchtimes(name string, atime time.Time, mtime time.Time) error {
	return nil
}
