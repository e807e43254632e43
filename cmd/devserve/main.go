// Copyright (c) 2012-2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// devserve daemon
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cactus/devserve/pkg/devserve"
	"github.com/cactus/devserve/pkg/stats"

	"github.com/alecthomas/kong"
	"github.com/cactus/mlog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
	_ "go.uber.org/automaxprocs"
)

// ServerName holds the server name string
var ServerName = "devserve"

// CLI holds the command line options
type CLI struct {
	Version       kong.VersionFlag `name:"version" short:"V" help:"Print version information and quit"`
	Listen        string           `name:"listen" default:":8000" env:"DEVSERVE_LISTEN" help:"Address:Port to bind to for HTTP"`
	Root          string           `name:"root" env:"DEVSERVE_ROOT" help:"Directory to serve. Defaults to the directory containing the executable"`
	Index         string           `name:"index" default:"index.html" help:"Document served for the root path"`
	AddHeaders    []string         `name:"header" short:"H" sep:"none" help:"Extra header to return for each response. This option can be used multiple times to add multiple headers"`
	NoBrowser     bool             `name:"no-browser" help:"Do not open a browser on startup"`
	NoListing     bool             `name:"no-listing" help:"Disable directory listings"`
	ShowTree      bool             `name:"show-tree" help:"Print the tree of the served directory on startup"`
	TreeDepth     int              `name:"tree-depth" default:"2" help:"Depth used by --show-tree"`
	MetricsListen string           `name:"metrics-listen" help:"Address:Port for the /metrics and /status endpoints. Disabled if empty"`
	LogJSON       bool             `name:"log-json" help:"Log in JSON format"`
	NoLogTS       bool             `name:"no-log-ts" help:"Do not add a timestamp to logging"`
	Verbose       bool             `name:"verbose" short:"v" help:"Show verbose (debug) log level output, including an access log"`
}

// defaultRoot returns the directory holding the running executable.
func defaultRoot() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

func parseHeaders(raw []string) map[string]string {
	headers := make(map[string]string)
	for _, v := range raw {
		s := strings.SplitN(v, ":", 2)
		if len(s) != 2 {
			mlog.Printf("ignoring bad header: '%s'", v)
			continue
		}

		s0 := strings.TrimSpace(s[0])
		s1 := strings.TrimSpace(s[1])

		if len(s0) == 0 || len(s1) == 0 {
			mlog.Printf("ignoring bad header: '%s'", v)
			continue
		}
		headers[s0] = s1
	}
	return headers
}

func serveMetrics(addr string, ss *stats.ServeStats) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/status", stats.Handler(ss))

	mlog.Printf("Starting metrics server on: %s", addr)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		mlog.Printm("metrics server stopped", mlog.Map{"err": err})
	}
}

func (cli *CLI) Run() error {
	// start out with a very bare logger that only prints
	// the message (no special format or log elements)
	mlog.SetFlags(0)

	root := cli.Root
	if root == "" {
		var err error
		root, err = defaultRoot()
		if err != nil {
			return fmt.Errorf("could not locate executable directory: %w", err)
		}
	}

	addHeaders := parseHeaders(cli.AddHeaders)

	// now configure a standard logger
	mlog.SetFlags(mlog.Lstd)
	if cli.NoLogTS {
		mlog.SetFlags(mlog.Flags() ^ mlog.Ltimestamp)
	}
	if cli.LogJSON {
		mlog.SetEmitter(&mlog.FormatWriterJSON{})
	}

	if cli.Verbose {
		mlog.SetFlags(mlog.Flags() | mlog.Ldebug)
		mlog.Debug("debug logging enabled")
	}

	ss := &stats.ServeStats{}
	server, err := devserve.New(devserve.Config{
		Addr:       cli.Listen,
		Root:       root,
		IndexFile:  cli.Index,
		ServerName: ServerName,
		DirListing: !cli.NoListing,
		AddHeaders: addHeaders,
		Stats:      ss,
	})
	if err != nil {
		return fmt.Errorf("could not create server: %w", err)
	}

	if cli.ShowTree {
		tree, err := devserve.RenderTree(server.Root(), cli.TreeDepth)
		if err != nil {
			mlog.Printm("could not render tree", mlog.Map{"err": err})
		} else {
			fmt.Print(tree)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		// restore default handling, so a second interrupt kills outright
		stop()
	}()

	if err := server.Listen(); err != nil {
		return err
	}

	if cli.MetricsListen != "" {
		go serveMetrics(cli.MetricsListen, ss)
	}

	fmt.Printf("Serving %s at %s\n", server.Root(), server.URL())
	fmt.Println("Press Ctrl+C to stop the server")

	if !cli.NoBrowser {
		server.OpenBrowser()
	}

	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	fmt.Println("\nServer stopped")
	return nil
}

func main() {
	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name(ServerName),
		kong.Description("Serve a directory over HTTP for local front-end development"),
		kong.UsageOnError(),
		kong.Vars{"version": version.Print(ServerName)},
	)

	if err := ctx.Run(); err != nil {
		mlog.Fatal(err)
	}
}
