// Package openapi describes the encounter API as an OpenAPI 3.0 document.
package openapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Generator builds the OpenAPI document. Status enums come from the caller
// so the document always matches the workflow table in use.
type Generator struct {
	version      string
	statuses     []string
	examStatuses []string
}

// NewGenerator creates a new OpenAPI document generator.
func NewGenerator(version string, statuses, examStatuses []string) *Generator {
	return &Generator{version: version, statuses: statuses, examStatuses: examStatuses}
}

// GenerateSpec produces the OpenAPI 3.0 document as a map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	idParam := []map[string]interface{}{
		{"name": "id", "in": "path", "required": true, "schema": map[string]interface{}{"type": "integer", "format": "int64", "minimum": 1}},
	}

	paths := map[string]interface{}{
		"/encounters": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "List encounters in creation order",
				"operationId": "listEncounters",
				"tags":        []string{"Encounter"},
				"parameters": []map[string]interface{}{
					{"name": "limit", "in": "query", "schema": map[string]interface{}{"type": "integer", "minimum": 0}},
					{"name": "offset", "in": "query", "schema": map[string]interface{}{"type": "integer", "minimum": 0}},
				},
				"responses": map[string]interface{}{
					"200": jsonResponse("Encounters", map[string]interface{}{
						"type":  "array",
						"items": ref("Encounter"),
					}),
					"400": errorResponse("Invalid paging parameters"),
				},
			},
			"post": map[string]interface{}{
				"summary":     "Register a new encounter",
				"operationId": "createEncounter",
				"tags":        []string{"Encounter"},
				"requestBody": jsonBody("CreateEncounter"),
				"responses": map[string]interface{}{
					"201": jsonResponse("Created", ref("Encounter")),
					"400": errorResponse("Validation failed"),
					"413": errorResponse("Request body too large"),
					"429": errorResponse("Rate limit exceeded"),
				},
			},
		},
		"/encounters/{id}": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "Read an encounter",
				"operationId": "getEncounter",
				"tags":        []string{"Encounter"},
				"parameters":  idParam,
				"responses": map[string]interface{}{
					"200": jsonResponse("Success", ref("Encounter")),
					"400": errorResponse("Invalid id"),
					"404": errorResponse("Not Found"),
				},
			},
		},
		"/encounters/{id}/status": map[string]interface{}{
			"patch": map[string]interface{}{
				"summary":     "Move an encounter to a new status",
				"operationId": "updateEncounterStatus",
				"tags":        []string{"Encounter"},
				"parameters":  idParam,
				"requestBody": jsonBody("StatusChange"),
				"responses": map[string]interface{}{
					"200": jsonResponse("Updated", ref("Encounter")),
					"400": errorResponse("Validation failed or invalid id"),
					"404": errorResponse("Not Found"),
					"409": errorResponse("Transition not allowed from the current status"),
					"429": errorResponse("Rate limit exceeded"),
				},
			},
		},
		"/statuses": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "Describe the workflow statuses",
				"operationId": "listStatuses",
				"tags":        []string{"Workflow"},
				"responses": map[string]interface{}{
					"200": jsonResponse("Statuses", map[string]interface{}{
						"type":  "array",
						"items": ref("StatusInfo"),
					}),
				},
			},
		},
		"/health": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "Liveness check",
				"operationId": "health",
				"tags":        []string{"Operations"},
				"responses": map[string]interface{}{
					"200": jsonResponse("Alive", map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"ok":   map[string]interface{}{"type": "boolean"},
							"time": map[string]interface{}{"type": "string", "format": "date-time"},
						},
					}),
				},
			},
		},
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "Encounter Workflow API",
			"version":     g.version,
			"description": "Hospital encounter registration and status workflow",
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": g.schemas(),
		},
	}
}

func (g *Generator) schemas() map[string]interface{} {
	status := map[string]interface{}{"type": "string", "enum": g.statuses}
	nullableString := map[string]interface{}{"type": "string", "nullable": true}

	return map[string]interface{}{
		"Status": status,
		"HistoryEntry": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"timestamp": map[string]interface{}{"type": "string", "format": "date-time"},
				"status":    ref("Status"),
				"actor":     map[string]interface{}{"type": "string"},
				"note":      nullableString,
			},
			"required": []string{"timestamp", "status", "actor"},
		},
		"Encounter": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id":            map[string]interface{}{"type": "integer", "format": "int64"},
				"patientName":   map[string]interface{}{"type": "string"},
				"taxId":         map[string]interface{}{"type": "string", "pattern": "^[0-9]{11}$"},
				"createdAt":     map[string]interface{}{"type": "string", "format": "date-time"},
				"currentStatus": ref("Status"),
				"examType":      nullableString,
				"notes":         nullableString,
				"history": map[string]interface{}{
					"type":     "array",
					"items":    ref("HistoryEntry"),
					"minItems": 1,
				},
			},
			"required": []string{"id", "patientName", "createdAt", "currentStatus", "history"},
		},
		"CreateEncounter": map[string]interface{}{
			"type":        "object",
			"description": examDescription(g.examStatuses),
			"properties": map[string]interface{}{
				"patientName": map[string]interface{}{"type": "string", "minLength": 3},
				"taxId":       map[string]interface{}{"type": "string", "description": "11 digits; punctuation is ignored"},
				"status":      ref("Status"),
				"examType":    map[string]interface{}{"type": "string"},
				"notes":       map[string]interface{}{"type": "string"},
			},
			"required": []string{"patientName", "status"},
		},
		"StatusChange": map[string]interface{}{
			"type":        "object",
			"description": examDescription(g.examStatuses),
			"properties": map[string]interface{}{
				"status":   ref("Status"),
				"examType": map[string]interface{}{"type": "string"},
			},
			"required": []string{"status"},
		},
		"StatusInfo": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"status":       ref("Status"),
				"requiresExam": map[string]interface{}{"type": "boolean"},
				"next":         map[string]interface{}{"type": "array", "items": ref("Status")},
			},
		},
		"Error": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"error": map[string]interface{}{"type": "string"},
			},
			"required": []string{"error"},
		},
	}
}

func examDescription(examStatuses []string) string {
	if len(examStatuses) == 0 {
		return ""
	}
	out := "examType is required when status is one of:"
	for _, s := range examStatuses {
		out += " " + s
	}
	return out
}

func ref(name string) map[string]interface{} {
	return map[string]interface{}{"$ref": "#/components/schemas/" + name}
}

func jsonBody(schema string) map[string]interface{} {
	return map[string]interface{}{
		"required": true,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": ref(schema)},
		},
	}
}

func jsonResponse(description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": schema},
		},
	}
}

func errorResponse(description string) map[string]interface{} {
	return jsonResponse(description, ref("Error"))
}

// RegisterRoutes registers GET /openapi.json.
func (g *Generator) RegisterRoutes(e *echo.Echo) {
	e.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
}
