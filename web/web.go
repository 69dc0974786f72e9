// Package web embeds the browser client served at "/".
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var static embed.FS

// Static returns the client files rooted at the static directory.
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		// The directory is embedded at build time.
		panic(err)
	}
	return sub
}
