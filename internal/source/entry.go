package source

import (
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// Entry identifies one file inside a source directory.
type Entry struct {
	// Root is the source directory the entry was found in.
	Root string
	// AbsPath is the full filesystem path of the file.
	AbsPath string
	// Path is the site-relative directory of the file, "" for the root
	// or "/a/b" for nested directories.
	Path    string
	Name    string
	ModTime time.Time
	Size    int64
	// Parent is the entry of the enclosing directory, nil at the root.
	Parent *Entry
}

// NewEntry stats root/rel on fs and builds an Entry for it.
func NewEntry(fs afero.Fs, root, rel string, parent *Entry) (*Entry, error) {
	abs := filepath.Join(root, rel)
	info, err := fs.Stat(abs)
	if err != nil {
		return nil, err
	}
	return entryFromInfo(root, abs, rel, info, parent), nil
}

func entryFromInfo(root, abs, rel string, info os.FileInfo, parent *Entry) *Entry {
	dir := path.Dir(filepath.ToSlash(rel))
	if dir == "." || dir == "/" {
		dir = ""
	} else if dir[0] != '/' {
		dir = "/" + dir
	}
	return &Entry{
		Root:    root,
		AbsPath: abs,
		Path:    dir,
		Name:    info.Name(),
		ModTime: info.ModTime(),
		Size:    info.Size(),
		Parent:  parent,
	}
}

// SameAs reports whether two entries describe the same file in the same state.
func (e *Entry) SameAs(other *Entry) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.AbsPath == other.AbsPath && e.Size == other.Size && e.ModTime.Equal(other.ModTime)
}

// RelPath returns the site-relative path of the file including its name.
func (e *Entry) RelPath() string {
	return e.Path + "/" + e.Name
}

// Ext returns the file extension including the leading dot.
func (e *Entry) Ext() string {
	return path.Ext(e.Name)
}

// BaseName returns the file name without its extension.
func (e *Entry) BaseName() string {
	return e.Name[:len(e.Name)-len(e.Ext())]
}

func (e *Entry) record() *Record {
	return &Record{Path: e.AbsPath, Size: e.Size, ModTime: e.ModTime}
}
