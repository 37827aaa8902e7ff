// Package web holds the static signup page served under /static.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var content embed.FS

// Static returns the front-end files rooted at the static directory, so
// "index.html" rather than "static/index.html".
func Static() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		// The directory is embedded at build time; this cannot fail at runtime.
		panic(err)
	}
	return sub
}
