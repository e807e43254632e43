// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package devserve

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
)

// ErrOutsideRoot is returned by Resolve when a path, after symlink
// evaluation, points somewhere outside of the served root.
var ErrOutsideRoot = errors.New("path resolves outside of root")

// cleanRoot returns the absolute, symlink free form of dir, and verifies
// that it is a directory.
func cleanRoot(dir string) (string, error) {
	if dir == "" {
		return "", errors.New("empty root directory")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("could not make root absolute: %w", err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("could not resolve root: %w", err)
	}
	fi, err := os.Stat(real)
	if err != nil {
		return "", fmt.Errorf("could not stat root: %w", err)
	}
	if !fi.IsDir() {
		return "", fmt.Errorf("root is not a directory: %s", real)
	}
	return real, nil
}

// cleanURLPath returns the lexically clean, rooted form of upath.
// The result never contains a ".." element.
func cleanURLPath(upath string) string {
	if !strings.HasPrefix(upath, "/") {
		upath = "/" + upath
	}
	return path.Clean(upath)
}

// Resolve maps a url path onto a real filesystem path under root.
// root must already be absolute and symlink free (see cleanRoot).
func Resolve(root, upath string) (string, error) {
	name := cleanURLPath(upath)
	full := filepath.Join(root, filepath.FromSlash(name))

	real, err := filepath.EvalSymlinks(full)
	if err != nil {
		// a path component that is a regular file is just another
		// flavor of "not there"
		if errors.Is(err, syscall.ENOTDIR) {
			return "", &fs.PathError{Op: "resolve", Path: name, Err: fs.ErrNotExist}
		}
		return "", err
	}

	if !within(root, real) {
		return "", ErrOutsideRoot
	}
	return real, nil
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}
