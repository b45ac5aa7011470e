// Package openapi embeds the HTTP contract used for request validation.
package openapi

import _ "embed"

//go:embed openapi.yaml
var Contract []byte
