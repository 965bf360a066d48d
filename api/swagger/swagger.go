package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Studyplan API",
        "description": "Study-session scheduling service: availability, allocation, feasibility and replanning",
        "version": "0.3.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Planner", "description": "Schedule generation, estimation, moves and replanning"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Dependencies unavailable"}
                }
            }
        },
        "/api/v1/timetables": {
            "get": {
                "tags": ["Planner"],
                "summary": "List the caller's timetables",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables/{id}": {
            "delete": {
                "tags": ["Planner"],
                "summary": "Delete a timetable document",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Timetable not found"}
                }
            }
        },
        "/api/v1/timetables/{id}/schedule": {
            "get": {
                "tags": ["Planner"],
                "summary": "Fetch the stored schedule document",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Timetable not found"}
                }
            },
            "post": {
                "tags": ["Planner"],
                "summary": "Generate a study schedule",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerationRequest"}}
                ],
                "responses": {
                    "200": {"description": "Schedule with unplaced items and warnings", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload"},
                    "409": {"description": "Concurrent modification"},
                    "504": {"description": "Generation budget exceeded"}
                }
            }
        },
        "/api/v1/timetables/{id}/schedule/estimate": {
            "post": {
                "tags": ["Planner"],
                "summary": "Estimate feasibility without persisting",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerationRequest"}}
                ],
                "responses": {
                    "200": {"description": "Feasibility report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables/{id}/schedule/move": {
            "post": {
                "tags": ["Planner"],
                "summary": "Move one session to another day",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MoveSessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated schedule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Session not found"},
                    "409": {"description": "No fitting gap on target day or concurrent modification"}
                }
            }
        },
        "/api/v1/timetables/{id}/days/{date}/replan": {
            "post": {
                "tags": ["Planner"],
                "summary": "Rebuild one day from a prioritized topic list",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "date", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReplanDayRequest"}}
                ],
                "responses": {
                    "200": {"description": "Replanned day", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables/{id}/sessions/{sessionId}": {
            "patch": {
                "tags": ["Planner"],
                "summary": "Toggle a session's completion flag",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "sessionId", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CompleteSessionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated schedule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/timetables/{id}/schedule/export": {
            "get": {
                "tags": ["Planner"],
                "summary": "Export the stored schedule",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Rendered document"}
                }
            }
        }
    },
    "definitions": {
        "GenerationRequest": {
            "type": "object",
            "properties": {
                "startDate": {"type": "string"},
                "endDate": {"type": "string"},
                "timetableMode": {"type": "string", "enum": ["short-term-exam", "long-term-exam", "no-exam"]},
                "subjects": {"type": "array", "items": {"type": "object"}},
                "topics": {"type": "array", "items": {"type": "object"}},
                "testDates": {"type": "array", "items": {"type": "object"}},
                "homework": {"type": "array", "items": {"type": "object"}},
                "events": {"type": "array", "items": {"type": "object"}},
                "preferences": {"type": "object"}
            },
            "required": ["startDate", "endDate", "timetableMode", "subjects", "preferences"]
        },
        "MoveSessionRequest": {
            "type": "object",
            "properties": {
                "sourceDate": {"type": "string"},
                "sessionId": {"type": "string"},
                "targetDate": {"type": "string"}
            },
            "required": ["sourceDate", "sessionId", "targetDate"]
        },
        "ReplanDayRequest": {
            "type": "object",
            "properties": {
                "priorities": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/ReplanTopic"}
                },
                "reflection": {"type": "string"}
            },
            "required": ["priorities"]
        },
        "ReplanTopic": {
            "type": "object",
            "properties": {
                "topicId": {"type": "string"},
                "confidence": {"type": "integer"},
                "focus": {"type": "boolean"}
            },
            "required": ["topicId"]
        },
        "CompleteSessionRequest": {
            "type": "object",
            "properties": {
                "completed": {"type": "boolean"}
            },
            "required": ["completed"]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
