// Package httpapi exposes a store.Store over HTTP.
//
// Routes:
//
//	POST /storage/{group}/{entity}           push a new version (x-api-key required)
//	GET  /storage/{group}/{entity}/versions  {"files": ["<id>.lua", ...]}
//	GET  /storage/{group}/{entity}/info      {"latest": "<id>"}
//	GET  /storage/{group}/{entity}/latest    raw payload of the latest version
//	GET  /healthz
//	GET  /metrics
//
// Authentication is evaluated before the store is invoked. Storage work runs
// on a bounded ants worker pool rather than on the connection goroutine.
package httpapi
