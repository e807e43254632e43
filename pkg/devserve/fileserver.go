// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package devserve

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/cactus/mlog"
)

// A FileServer serves the contents of a directory tree, refusing any
// request that would resolve to a file outside of it.
type FileServer struct {
	root       string
	indexFile  string
	dirListing bool
}

// NewFileServer returns a FileServer rooted at dir.
func NewFileServer(dir, indexFile string, dirListing bool) (*FileServer, error) {
	root, err := cleanRoot(dir)
	if err != nil {
		return nil, err
	}
	if indexFile == "" {
		indexFile = DefaultIndexFile
	}
	if strings.ContainsAny(indexFile, `/\`) {
		return nil, fmt.Errorf("index file must be a plain file name: %s", indexFile)
	}
	return &FileServer{root: root, indexFile: indexFile, dirListing: dirListing}, nil
}

// Root returns the resolved directory being served.
func (fsrv *FileServer) Root() string {
	return fsrv.root
}

// ServeHTTP serves the file or directory that r.URL.Path maps to.
func (fsrv *FileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upath := cleanURLPath(r.URL.Path)

	real, err := Resolve(fsrv.root, upath)
	if err != nil {
		fsrv.serveError(w, r, err)
		return
	}

	// #nosec G304 -- real has passed the containment check
	f, err := os.Open(real)
	if err != nil {
		fsrv.serveError(w, r, err)
		return
	}
	// #nosec
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		fsrv.serveError(w, r, err)
		return
	}

	if !fi.IsDir() {
		http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
		return
	}

	// directories are always addressed with a trailing slash, so relative
	// links inside an index document resolve the way a browser expects
	if !strings.HasSuffix(r.URL.Path, "/") {
		localRedirect(w, r, path.Base(upath)+"/")
		return
	}

	if fsrv.serveIndex(w, r, upath) {
		return
	}

	if !fsrv.dirListing {
		fsrv.serveError(w, r, fs.ErrNotExist)
		return
	}

	entries, err := f.ReadDir(-1)
	if err != nil {
		fsrv.serveError(w, r, err)
		return
	}
	writeListing(w, upath, entries)
}

// serveIndex serves the index file of the directory at upath, if one
// exists. It reports whether a response was written.
func (fsrv *FileServer) serveIndex(w http.ResponseWriter, r *http.Request, upath string) bool {
	real, err := Resolve(fsrv.root, path.Join(upath, fsrv.indexFile))
	if err != nil {
		return false
	}

	// #nosec G304 -- real has passed the containment check
	f, err := os.Open(real)
	if err != nil {
		return false
	}
	// #nosec
	defer f.Close()

	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		return false
	}
	http.ServeContent(w, r, fi.Name(), fi.ModTime(), f)
	return true
}

func (fsrv *FileServer) serveError(w http.ResponseWriter, r *http.Request, err error) {
	code := errorToStatus(err)
	if mlog.HasDebug() {
		mlog.Debugm("file lookup failed", mlog.Map{
			"path":   r.URL.Path,
			"status": code,
			"err":    err,
		})
	}
	http.Error(w, fmt.Sprintf("%d %s", code, http.StatusText(code)), code)
}

func errorToStatus(err error) int {
	switch {
	case errors.Is(err, ErrOutsideRoot):
		return http.StatusNotFound
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// localRedirect writes a relative 301 redirect, keeping any query string.
// A relative target avoids turning a "//host" style path into an
// off-site redirect.
func localRedirect(w http.ResponseWriter, r *http.Request, target string) {
	if q := r.URL.RawQuery; q != "" {
		target += "?" + q
	}
	w.Header().Set("Location", target)
	w.WriteHeader(http.StatusMovedPermanently)
}
