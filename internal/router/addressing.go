package router

import (
	"path/filepath"

	"github.com/mrlokans/querylog/internal/utils"
)

const fileExtension = ".csv"

// Addressing decides where the file of each category lives. There are two
// modes: a directory holding "<category>.csv" files, or a filename prefix
// producing "<prefix>_<category>.csv" files.
type Addressing struct {
	dir    string
	prefix string
}

// DirectoryTarget writes "<dir>/<category>.csv".
func DirectoryTarget(dir string) Addressing {
	return Addressing{dir: dir}
}

// PrefixTarget writes "<prefix>_<category>.csv". The prefix may contain a
// directory part, e.g. "out/2024-01-01" gives "out/2024-01-01_liveboard.csv".
func PrefixTarget(prefix string) Addressing {
	return Addressing{prefix: prefix}
}

func (a Addressing) IsPrefix() bool {
	return a.prefix != ""
}

// PathFor returns the file path of category.
func (a Addressing) PathFor(category string) string {
	name := utils.SanitizeCategory(category)
	if a.IsPrefix() {
		return a.prefix + "_" + name + fileExtension
	}
	return filepath.Join(a.dir, name+fileExtension)
}

// String returns the directory or the prefix, whichever is in use.
func (a Addressing) String() string {
	if a.IsPrefix() {
		return a.prefix
	}
	return a.dir
}
