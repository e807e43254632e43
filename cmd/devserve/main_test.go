// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestParseHeaders(t *testing.T) {
	headers := parseHeaders([]string{
		"Cache-Control: no-store",
		"X-Spaced :  value with spaces ",
		"bogus",
		": novalue-name",
		"X-Empty:",
		"X-Url: http://example.com:8080/",
	})
	assert.Check(t, is.DeepEqual(map[string]string{
		"Cache-Control": "no-store",
		"X-Spaced":      "value with spaces",
		"X-Url":         "http://example.com:8080/",
	}, headers))
}

func TestDefaultRoot(t *testing.T) {
	root, err := defaultRoot()
	assert.NilError(t, err)
	exe, err := os.Executable()
	assert.NilError(t, err)
	exe, err = filepath.EvalSymlinks(exe)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(filepath.Dir(exe), root))
}

func TestCLIDefaults(t *testing.T) {
	cli := CLI{}
	parser, err := kong.New(&cli, kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	assert.NilError(t, err)
	_, err = parser.Parse([]string{})
	assert.NilError(t, err)

	assert.Check(t, is.Equal(":8000", cli.Listen))
	assert.Check(t, is.Equal("index.html", cli.Index))
	assert.Check(t, is.Equal(2, cli.TreeDepth))
	assert.Check(t, is.Equal("", cli.MetricsListen))
	assert.Check(t, !cli.NoBrowser)
	assert.Check(t, !cli.NoListing)
}

func TestCLIFlags(t *testing.T) {
	cli := CLI{}
	parser, err := kong.New(&cli, kong.Vars{"version": "test"}, kong.Exit(func(int) {}))
	assert.NilError(t, err)
	_, err = parser.Parse([]string{
		"--listen", "127.0.0.1:9000",
		"--root", "/srv/site",
		"-H", "X-A: 1",
		"-H", "X-B: 2",
		"--no-browser",
		"--no-listing",
		"-v",
	})
	assert.NilError(t, err)

	assert.Check(t, is.Equal("127.0.0.1:9000", cli.Listen))
	assert.Check(t, is.Equal("/srv/site", cli.Root))
	assert.Check(t, is.DeepEqual([]string{"X-A: 1", "X-B: 2"}, cli.AddHeaders))
	assert.Check(t, cli.NoBrowser)
	assert.Check(t, cli.NoListing)
	assert.Check(t, cli.Verbose)
}
