package speechdemo

import _ "embed"

//go:embed openapi.yaml
var OpenAPISpec []byte

//go:embed schema.sql
var SchemaSQL []byte
