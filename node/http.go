// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package node

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/exp"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/cors"
)

// newHTTPHandler serves JSON-RPC over HTTP and, if ws is set, upgrades
// WebSocket requests on the same port. With withMetrics the metrics registry
// is exposed at /debug/metrics.
func newHTTPHandler(srv *rpc.Server, origins []string, ws bool, withMetrics bool) http.Handler {
	var handler http.Handler = newCorsHandler(srv, origins)
	if ws {
		httpHandler, wsHandler := handler, srv.WebsocketHandler(origins)
		handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isWebsocket(r) {
				wsHandler.ServeHTTP(w, r)
				return
			}
			httpHandler.ServeHTTP(w, r)
		})
	}
	if !withMetrics {
		return handler
	}
	mux := http.NewServeMux()
	mux.Handle("/debug/metrics", exp.ExpHandler(metrics.DefaultRegistry))
	mux.Handle("/", handler)
	return mux
}

func newCorsHandler(srv http.Handler, allowedOrigins []string) http.Handler {
	// disable CORS support if user has not specified a custom CORS configuration
	if len(allowedOrigins) == 0 {
		return srv
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodGet},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})
	return c.Handler(srv)
}

// isWebsocket checks the header of an http request for a websocket upgrade request.
func isWebsocket(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}
