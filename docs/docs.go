// Package docs registers the OpenAPI description served by the Swagger UI
// route. The SwaggerInfo fields can be overridden at startup (host, base
// path) before the UI handler is mounted.
package docs

import "github.com/swaggo/swag"

// docTemplate is the swagger 2.0 skeleton; endpoint detail comes from the
// swag CLI when regenerated (`swag init -g cmd/server/main.go`).
const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Survey Backend API",
	Description:      "Questionnaire schema lifecycle, response ingestion, and privacy-aware analytics.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
