// Package docs embeds the OpenAPI document served at /swagger.json.
//
// The document is maintained by hand; regenerate-by-annotation tooling is not
// wired into the build, so handler changes that alter the API surface must be
// mirrored here.
package docs

import _ "embed"

//go:embed swagger.json
var SwaggerJSON []byte
