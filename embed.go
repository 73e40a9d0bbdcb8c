// Package quickstart holds the embedded static client page.
package quickstart

import "embed"

//go:embed public
var PublicFS embed.FS
