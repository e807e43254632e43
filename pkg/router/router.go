// Copyright (c) 2012-2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package router provides the request hooks that sit in front of the
// static file handler: cross-origin headers, the index rewrite and the
// method policy.
package router

import (
	"net/http"
)

// CORSHeaders are attached to every response, whatever its status.
var CORSHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type",
}

// A StatsCollector receives accounting for each response sent.
type StatsCollector interface {
	AddServed()
	AddBytes(int64)
	AddNotFound()
}

// DumbRouter is a basic, special purpose, http router
type DumbRouter struct {
	ServerName  string
	IndexFile   string
	AddHeaders  map[string]string
	FileHandler http.Handler
	Stats       StatsCollector
}

// SetHeaders sets the headers on the response
func (dr *DumbRouter) SetHeaders(w http.ResponseWriter) {
	h := w.Header()
	for k, v := range dr.AddHeaders {
		h.Set(k, v)
	}
	// extra headers may not weaken the cors values
	for k, v := range CORSHeaders {
		h.Set(k, v)
	}
	if dr.ServerName != "" {
		h.Set("Server", dr.ServerName)
	}
}

// ServeHTTP fulfills the http server interface
func (dr *DumbRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := &statusRecorder{ResponseWriter: w}

	// set headers before any handler has a chance to write
	dr.SetHeaders(rec)

	switch r.Method {
	case http.MethodOptions:
		rec.WriteHeader(http.StatusNoContent)
	case http.MethodGet, http.MethodHead:
		dr.FileHandler.ServeHTTP(rec, dr.rewrite(r))
	default:
		http.Error(rec, "Unsupported method", http.StatusNotImplemented)
	}

	dr.observe(r, rec)
}

// rewrite maps the bare root path onto the index document.
func (dr *DumbRouter) rewrite(r *http.Request) *http.Request {
	if r.URL.Path != "/" || dr.IndexFile == "" {
		return r
	}
	nr := r.Clone(r.Context())
	nr.URL.Path = "/" + dr.IndexFile
	nr.URL.RawPath = ""
	return nr
}

func (dr *DumbRouter) observe(r *http.Request, rec *statusRecorder) {
	status := rec.Status()
	requestsTotal.WithLabelValues(statusLabel(status)).Inc()
	responseBytes.Add(float64(rec.bytes))

	if dr.Stats != nil {
		dr.Stats.AddServed()
		dr.Stats.AddBytes(rec.bytes)
		if status == http.StatusNotFound {
			dr.Stats.AddNotFound()
		}
	}

	logAccess(r, status, rec.bytes)
}
