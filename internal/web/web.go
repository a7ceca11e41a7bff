// Package web embeds the dashboard page.
package web

import (
	"embed"
	"io/fs"
)

//go:embed dist
var dist embed.FS

// Assets returns the dashboard files rooted at dist/.
func Assets() (fs.FS, error) {
	return fs.Sub(dist, "dist")
}
