package handlers

import (
	"fmt"
	"html"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// DocsConfig places the documentation endpoints.
type DocsConfig struct {
	Title      string
	Version    string
	APIPrefix  string
	DocsURL    string
	OpenAPIURL string
}

// RegisterSwagger registers the Swagger UI page and the OpenAPI document.
// - GET <DocsURL>     -> a small HTML page that loads the OpenAPI JSON
// - GET <OpenAPIURL>  -> machine-readable OpenAPI JSON
// An empty URL disables that endpoint.
func RegisterSwagger(r gin.IRoutes, cfg DocsConfig) {
	if cfg.DocsURL != "" {
		page := fmt.Sprintf(swaggerHTML, html.EscapeString(cfg.Title), cfg.OpenAPIURL)
		r.GET(cfg.DocsURL, func(c *gin.Context) {
			c.Header("Content-Type", "text/html; charset=utf-8")
			c.String(http.StatusOK, page)
		})
	}
	if cfg.OpenAPIURL != "" {
		doc := OpenAPI(cfg)
		r.GET(cfg.OpenAPIURL, func(c *gin.Context) {
			c.JSON(http.StatusOK, doc)
		})
	}
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>%s - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '%s',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

type obj = map[string]any

func ref(name string) obj { return obj{"$ref": "#/components/schemas/" + name} }

func jsonBody(schema obj) obj {
	return obj{"required": true, "content": obj{"application/json": obj{"schema": schema}}}
}

func reply(desc string, schema obj) obj {
	if schema == nil {
		return obj{"description": desc}
	}
	return obj{"description": desc, "content": obj{"application/json": obj{"schema": schema}}}
}

func errorReplies(codes ...string) obj {
	out := obj{}
	for _, code := range codes {
		n, _ := strconv.Atoi(code)
		out[code] = reply(http.StatusText(n), ref("HTTPError"))
	}
	return out
}

func operation(summary string, body obj, ok obj, errs ...string) obj {
	op := obj{"tags": []string{"house"}, "summary": summary}
	if body != nil {
		op["requestBody"] = body
	}
	responses := errorReplies(errs...)
	responses["200"] = ok
	op["responses"] = responses
	return op
}

var idParam = obj{"name": "id", "in": "path", "required": true, "schema": obj{"type": "string", "example": "5eb7cf5a86d9755df3a6c593"}}

func withParams(op obj, params ...obj) obj {
	op["parameters"] = params
	return op
}

// OpenAPI builds the OpenAPI 3 document of the house API.
func OpenAPI(cfg DocsConfig) map[string]any {
	base := cfg.APIPrefix + "/v2/house"
	number := obj{"type": "number"}
	query := func(name string, schema obj) obj { return obj{"name": name, "in": "query", "schema": schema} }

	return obj{
		"openapi": "3.0.3",
		"info":    obj{"title": cfg.Title, "version": cfg.Version},
		"paths": obj{
			base + "/": obj{"get": withParams(
				operation("List houses", nil, reply("page of houses", ref("PageOutHouse")), "404", "422"),
				query("name", obj{"type": "string"}), query("name_contains", obj{"type": "string"}),
				query("width", number), query("height", number), query("volume", number),
				query("page", obj{"type": "integer", "minimum": 1}), query("size", obj{"type": "integer", "minimum": 1}),
			)},
			base + "/create": obj{"post": operation("Create a house", jsonBody(ref("BaseHouse")), reply("created house", ref("OutHouse")), "400", "422")},
			base + "/{id}": obj{
				"get":    withParams(operation("Get a house", nil, reply("house", ref("OutHouse")), "404", "422"), idParam),
				"patch":  withParams(operation("Update the given attributes", jsonBody(ref("BaseHouse")), reply("updated house", ref("OutHouse")), "400", "404", "422"), idParam),
				"put":    withParams(operation("Replace a house", jsonBody(ref("BaseHouse")), reply("replaced house", ref("OutHouse")), "400", "404", "422"), idParam),
				"delete": withParams(operation("Delete a house", nil, reply("deleted house", ref("BaseHouse")), "404", "422"), idParam),
			},
			base + "/{id}/attr/{attr}": obj{"patch": withParams(
				operation("Update one attribute", jsonBody(obj{"type": "object", "properties": obj{"value": obj{}}}), reply("updated house", ref("OutHouse")), "400", "404", "422"),
				idParam, obj{"name": "attr", "in": "path", "required": true, "schema": obj{"type": "string", "enum": []string{"name", "width", "height", "volume"}}},
			)},
			"/health": obj{"get": obj{"summary": "Liveness check", "responses": obj{"200": reply("healthy", nil)}}},
			"/ready":  obj{"get": obj{"summary": "Readiness check", "responses": obj{"200": reply("ready", nil), "503": reply("not ready", nil)}}},
		},
		"components": obj{"schemas": obj{
			"BaseHouse": obj{"type": "object", "properties": obj{
				"name": obj{"type": "string"}, "width": number, "height": number, "volume": number,
			}},
			"OutHouse": obj{"allOf": []obj{ref("BaseHouse"), {"type": "object", "properties": obj{
				"id":           obj{"type": "string", "example": "5eb7cf5a86d9755df3a6c593"},
				"created_date": obj{"type": "string", "format": "date-time"},
				"updated_date": obj{"type": "string", "format": "date-time"},
			}}}},
			"PageOutHouse": obj{"type": "object", "properties": obj{
				"items": obj{"type": "array", "items": ref("OutHouse")},
				"total": obj{"type": "integer"}, "page": obj{"type": "integer"},
				"size": obj{"type": "integer"}, "pages": obj{"type": "integer"},
			}},
			"HTTPError": obj{"type": "object", "properties": obj{"detail": obj{"type": "string"}}},
		}},
	}
}
