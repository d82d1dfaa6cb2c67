package templates

import "embed"

// EmbeddedFS holds the templates compiled into the binary.
//
//go:embed files/*.tmpl
var EmbeddedFS embed.FS
