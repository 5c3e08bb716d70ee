package source

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

// Filter decides which file and directory names take part in a build.
type Filter struct {
	// Includes lists names accepted even when the default rules reject them.
	Includes []string
	// Excludes lists names always rejected.
	Excludes []string
}

// Accept applies include/exclude lists, then rejects names starting with
// '.', '_' or '#' and names ending with '~'.
func (f Filter) Accept(name string) bool {
	if slices.Contains(f.Includes, name) {
		return true
	}
	if slices.Contains(f.Excludes, name) {
		return false
	}
	if name == "" {
		return false
	}
	switch name[0] {
	case '.', '_', '#':
		return false
	}
	return !strings.HasSuffix(name, "~")
}

// Walker enumerates accepted files under a source directory.
type Walker struct {
	fs     afero.Fs
	filter Filter
}

// NewWalker returns a walker over fs.
func NewWalker(fs afero.Fs, filter Filter) *Walker {
	return &Walker{fs: fs, filter: filter}
}

// Walk calls visit for each accepted regular file below root in lexical order.
// Rejected directories are not descended into.
func (w *Walker) Walk(root string, visit func(*Entry) error) error {
	dirs := map[string]*Entry{}
	return afero.Walk(w.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		if !w.filter.Accept(info.Name()) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		entry := entryFromInfo(root, p, rel, info, dirs[filepath.Dir(p)])
		if info.IsDir() {
			dirs[p] = entry
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return visit(entry)
	})
}
