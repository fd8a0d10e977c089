// Package najilaboule embeds the site's locale files, templates and static
// assets so the server binary is self-contained.
package najilaboule

import "embed"

// Locales holds locales/<lang>.yaml.
//
//go:embed locales/*.yaml
var Locales embed.FS

// Templates holds the html/template sources under templates/.
//
//go:embed templates/*.tmpl
var Templates embed.FS

// Public holds static assets served under /assets/.
//
//go:embed public/assets
var Public embed.FS
