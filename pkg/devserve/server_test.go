// Copyright (c) 2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package devserve

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/cactus/devserve/pkg/stats"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestStateString(t *testing.T) {
	t.Parallel()
	assert.Check(t, is.Equal("starting", StateStarting.String()))
	assert.Check(t, is.Equal("serving", StateServing.String()))
	assert.Check(t, is.Equal("stopping", StateStopping.String()))
	assert.Check(t, is.Equal("stopped", StateStopped.String()))
	assert.Check(t, is.Equal("State(9)", State(9).String()))
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Config{Root: makeRoot(t)})
	assert.Check(t, is.Equal(DefaultAddr, s.config.Addr))
	assert.Check(t, is.Equal(DefaultIndexFile, s.config.IndexFile))
	assert.Check(t, is.Equal(DefaultServerName, s.config.ServerName))
	assert.Check(t, is.Equal(StateStarting, s.State()))
	assert.Check(t, s.Addr() == nil)
	assert.Check(t, is.Equal("", s.URL()))
}

func TestNewBadRoot(t *testing.T) {
	t.Parallel()
	_, err := New(Config{Root: "/this/path/should/not/exist/anywhere"})
	assert.Check(t, is.ErrorContains(err, "could not resolve root"))
}

func TestListenBindError(t *testing.T) {
	t.Parallel()
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)
	defer taken.Close()

	s := newTestServer(t, Config{Root: makeRoot(t), Addr: taken.Addr().String()})
	err = s.Listen()

	var bindErr *BindError
	assert.Assert(t, errors.As(err, &bindErr), "got: %v", err)
	assert.Check(t, is.Equal(taken.Addr().String(), bindErr.Addr))
	assert.Check(t, errors.Unwrap(err) != nil)
	assert.Check(t, is.ErrorContains(err, "could not bind"))
	assert.Check(t, is.Equal(StateStopped, s.State()))
}

func TestServeBeforeListen(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Config{Root: makeRoot(t)})
	err := s.Serve(context.Background())
	assert.Check(t, is.ErrorContains(err, "not listening"))
}

func TestURL(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, Config{Root: makeRoot(t), Addr: ":0"})
	assert.NilError(t, s.Listen())
	defer s.listener.Close()

	_, port, err := net.SplitHostPort(s.Addr().String())
	assert.NilError(t, err)
	assert.Check(t, is.Equal("http://localhost:"+port, s.URL()))

	s2 := newTestServer(t, Config{Root: makeRoot(t), Addr: "127.0.0.1:0"})
	assert.NilError(t, s2.Listen())
	defer s2.listener.Close()
	assert.Check(t, strings.HasPrefix(s2.URL(), "http://127.0.0.1:"))
}

func TestOpenBrowser(t *testing.T) {
	t.Parallel()
	var opened []string
	s := newTestServer(t, Config{
		Root: makeRoot(t),
		Addr: "127.0.0.1:0",
		Opener: func(u string) error {
			opened = append(opened, u)
			return errors.New("no display")
		},
	})

	// not listening yet, nothing to open
	s.OpenBrowser()
	assert.Check(t, is.Len(opened, 0))

	assert.NilError(t, s.Listen())
	defer s.listener.Close()

	// a launch failure is only a warning
	s.OpenBrowser()
	assert.Check(t, is.DeepEqual([]string{s.URL()}, opened))
}

func waitForState(t *testing.T, s *Server, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for state %s, have %s", want, s.State())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServeAndShutdown(t *testing.T) {
	t.Parallel()
	ss := &stats.ServeStats{}
	s := newTestServer(t, Config{Root: makeRoot(t), Addr: "127.0.0.1:0", Stats: ss})
	assert.NilError(t, s.Listen())
	assert.Check(t, is.Equal(StateServing, s.State()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx)
	}()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(s.URL() + "/styles.css")
	assert.NilError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.NilError(t, err)
	assert.Check(t, is.Equal(200, resp.StatusCode))
	assert.Check(t, is.Equal(testFiles["styles.css"], string(body)))
	assert.Check(t, is.Equal("*", resp.Header.Get("Access-Control-Allow-Origin")))

	resp, err = client.Get(s.URL() + "/nope")
	assert.NilError(t, err)
	resp.Body.Close()
	assert.Check(t, is.Equal(404, resp.StatusCode))

	cancel()
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	waitForState(t, s, StateStopped)

	c, b, nf := ss.GetStats()
	assert.Check(t, is.Equal(uint64(2), c))
	assert.Check(t, b >= uint64(len(testFiles["styles.css"])))
	assert.Check(t, is.Equal(uint64(1), nf))

	// no further connections are accepted
	conn, err := net.DialTimeout("tcp", s.Addr().String(), time.Second)
	if err == nil {
		conn.Close()
	}
	assert.Check(t, err != nil, "expected dial to fail after shutdown")
}
