// Package docs embeds the OpenAPI description served under /docs.
package docs

import "embed"

// SwaggerFile is the name of the OpenAPI document inside FS.
const SwaggerFile = "swagger.yml"

//go:embed swagger.yml
var FS embed.FS
