package cli

import (
	"path/filepath"

	"github.com/vslavik/bakefile/pkg"
)

// configFile is the name of the optional defaults file. It is looked up
// in the current directory first, then in the user's configuration
// directory.
const configFile = "bakefile.yaml"

// configPath returns the absolute path to a file or directory formed by
// joining the user configuration directory path with the given path
// elements.
func configPath(elem ...string) string {
	return filepath.Join(append([]string{pkg.ConfigDir()}, elem...)...)
}
