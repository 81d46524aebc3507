// Package rolegate provides embedded assets for production builds.
package rolegate

import "embed"

// TemplateFS holds the HTML templates rendered by the HTTP layer.
//
//go:embed templates/*.html
var TemplateFS embed.FS
