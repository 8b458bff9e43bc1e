// Package web embeds the dashboard served from the Go binary.
//
// The dashboard is a single page that reads /api/v1/summary and follows
// /ws for a fresh summary after every run.
//
// Usage in the API server:
//
//	import "github.com/seenimoa/tickerpulse/web"
//	fs, err := web.DistFS() // io/fs.FS rooted at static/
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:static
var dist embed.FS

// DistFS returns a filesystem rooted at the embedded static/ directory.
// This is ready to use with http.FileServerFS or http.FS.
func DistFS() (fs.FS, error) {
	return fs.Sub(dist, "static")
}
