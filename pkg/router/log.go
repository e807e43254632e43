// Copyright (c) 2012-2024 Eli Janssen
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package router

import (
	"net/http"

	"github.com/cactus/mlog"
)

func httpReqToMlogMap(req *http.Request) mlog.Map {
	return mlog.Map{
		"method":      req.Method,
		"path":        req.RequestURI,
		"proto":       req.Proto,
		"host":        req.Host,
		"remote_addr": req.RemoteAddr,
	}
}

func logAccess(req *http.Request, status int, bytes int64) {
	if !mlog.HasDebug() {
		return
	}
	m := httpReqToMlogMap(req)
	m["status"] = status
	m["bytes"] = bytes
	mlog.Debugm("request served", m)
}
