// Package source reads content files, splits their front matter from the body
// and caches parse results keyed by a (path, size, mtime) fingerprint.
//
// Files that do not carry a front matter header are reported as
// ErrNotAContentSource and are treated as static assets by the build.
package source
