package pkg

import (
	"os"
	"path/filepath"
	"sync"
)

// ConfigDir returns the directory bakefile reads its configuration
// from. The directory is not created; callers handle a missing path.
//
//nolint:gochecknoglobals
var ConfigDir = sync.OnceValue(
	func() string {
		return userDir(os.UserConfigDir, ".config")
	},
)

// CacheDir returns the directory used for transient files such as
// profiling output.
//
//nolint:gochecknoglobals
var CacheDir = sync.OnceValue(
	func() string {
		return userDir(os.UserCacheDir, ".cache")
	},
)

// userDir resolves a per-user base directory with fallbacks for
// environments where the standard lookup fails (no HOME, etc.), and
// appends the tool's own subdirectory.
func userDir(lookup func() (string, error), fallback string) string {
	dir, err := lookup()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			wd, err := os.Getwd()
			if err != nil {
				wd = "."
			}

			return filepath.Join(wd, "."+Name)
		}
		dir = filepath.Join(home, fallback)
	}

	return filepath.Join(dir, Name)
}
