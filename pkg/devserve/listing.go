// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package devserve

import (
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/cactus/mlog"
)

var listingTemplate = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Directory listing for {{.Path}}</title>
</head>
<body>
<h1>Directory listing for {{.Path}}</h1>
<hr>
<ul>
{{range .Entries}}<li><a href="{{.Href}}">{{.Name}}</a></li>
{{end}}</ul>
<hr>
</body>
</html>
`))

type listingEntry struct {
	Name string
	Href string
}

type listing struct {
	Path    string
	Entries []listingEntry
}

func newListing(upath string, entries []fs.DirEntry) listing {
	if !strings.HasSuffix(upath, "/") {
		upath += "/"
	}
	sort.Slice(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	l := listing{Path: upath, Entries: make([]listingEntry, 0, len(entries))}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		// url.URL prefixes "./" when the first segment contains a colon,
		// so a name like "a:b" is not read as a scheme
		href := url.URL{Path: name}
		l.Entries = append(l.Entries, listingEntry{Name: name, Href: href.String()})
	}
	return l
}

func writeListing(w http.ResponseWriter, upath string, entries []fs.DirEntry) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := listingTemplate.Execute(w, newListing(upath, entries))
	if err != nil && mlog.HasDebug() {
		mlog.Debugm("listing write failed", mlog.Map{"path": upath, "err": err})
	}
}
