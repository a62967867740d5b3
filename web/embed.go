// Package web embeds the console templates and static assets.
package web

import "embed"

// Templates embeds the layouts, partials and pages rendered by view.Engine.
//
//go:embed templates/layouts/*.html templates/partials/*.html templates/pages/*.html
var Templates embed.FS

// Static embeds assets served under /static/.
//
//go:embed static/css/*.css
var Static embed.FS
