// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package devserve provides a static file server for local front-end
// development: files are served from a single root directory, the bare
// root path maps onto an index document, and every response carries
// permissive cross-origin headers.
package devserve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cactus/devserve/pkg/router"

	"github.com/cactus/mlog"
	"github.com/pkg/browser"
)

const (
	// DefaultAddr binds all interfaces on port 8000.
	DefaultAddr = ":8000"
	// DefaultIndexFile is served for requests to the bare root path.
	DefaultIndexFile = "index.html"
	// DefaultServerName is used for the Server response header.
	DefaultServerName = "devserve"
)

// Config holds configuration data used when creating a Server with New.
type Config struct {
	// Addr is the host:port to listen on
	Addr string
	// Root is the directory files are served from
	Root string
	// IndexFile is served in place of a bare directory path
	IndexFile string
	// Server name used in the Server header
	ServerName string
	// DirListing enables html listings of directories without an index
	DirListing bool
	// AddHeaders are extra headers set on every response
	AddHeaders map[string]string
	// Stats, if set, receives per-response accounting
	Stats router.StatsCollector
	// Opener launches a browser at a url. Defaults to the system browser.
	Opener func(url string) error
}

// State is a step in the server lifecycle.
type State int32

const (
	StateStarting State = iota
	StateServing
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateServing:
		return "serving"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// A BindError is returned by Listen when the listen address cannot be
// bound.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("could not bind %s: %s", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// A Server serves a directory over http until its context is cancelled.
type Server struct {
	config   Config
	files    *FileServer
	handler  http.Handler
	srv      *http.Server
	listener net.Listener
	state    atomic.Int32
}

// New returns a new Server in the starting state.
func New(config Config) (*Server, error) {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.IndexFile == "" {
		config.IndexFile = DefaultIndexFile
	}
	if config.ServerName == "" {
		config.ServerName = DefaultServerName
	}
	if config.Opener == nil {
		config.Opener = browser.OpenURL
	}

	files, err := NewFileServer(config.Root, config.IndexFile, config.DirListing)
	if err != nil {
		return nil, err
	}

	handler := &router.DumbRouter{
		ServerName:  config.ServerName,
		IndexFile:   config.IndexFile,
		AddHeaders:  config.AddHeaders,
		FileHandler: files,
		Stats:       config.Stats,
	}

	s := &Server{
		config:  config,
		files:   files,
		handler: handler,
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.setState(StateStarting)
	return s, nil
}

// Handler returns the http.Handler requests are dispatched to.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Root returns the resolved directory being served.
func (s *Server) Root() string {
	return s.files.Root()
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

func (s *Server) setState(st State) {
	s.state.Store(int32(st))
	if mlog.HasDebug() {
		mlog.Debugm("server state", mlog.Map{"state": st})
	}
}

// Listen binds the configured address. On failure the server moves
// straight to the stopped state and a *BindError is returned.
func (s *Server) Listen() error {
	if s.listener != nil {
		return errors.New("server is already listening")
	}
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		s.setState(StateStopped)
		return &BindError{Addr: s.config.Addr, Err: err}
	}
	s.listener = ln
	s.setState(StateServing)
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// URL returns the url a local browser should use to reach the server.
func (s *Server) URL() string {
	addr := s.Addr()
	if addr == nil {
		return ""
	}
	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return ""
	}
	host, _, err := net.SplitHostPort(s.config.Addr)
	if err != nil || host == "" {
		host = "localhost"
	} else if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// OpenBrowser points the default browser at the server. A failure is
// logged and otherwise ignored, since a headless host can still serve.
func (s *Server) OpenBrowser() {
	u := s.URL()
	if u == "" {
		return
	}
	if err := s.config.Opener(u); err != nil {
		mlog.Printm("warning: could not open browser", mlog.Map{"url": u, "err": err})
	}
}

// Serve accepts connections until ctx is done, then stops accepting,
// waits for in-flight requests to finish, and returns nil.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("server is not listening")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		s.setState(StateStopped)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.setState(StateStopping)
	// no deadline: in-flight responses are allowed to complete
	err := s.srv.Shutdown(context.Background())
	<-errCh
	s.setState(StateStopped)
	return err
}
