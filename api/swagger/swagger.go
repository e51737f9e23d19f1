package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Faculty Scheduler API",
        "description": "Timetable generation, conflict detection and reservation workflow for faculty spaces.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Scheduler", "description": "Schedule generation and publication"},
        {"name": "Reservations", "description": "Reservation and schedule-change workflow"},
        {"name": "Exports", "description": "Timetable exports behind signed links"}
    ],
    "paths": {
        "/horizons/{id}/schedules/generate": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Generate a candidate schedule for a horizon",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "async", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "201": {"description": "Candidate stored", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Generation queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Horizon not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/horizons/{id}/schedules": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "List schedules of a horizon",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "status", "in": "query", "type": "array", "items": {"type": "string", "enum": ["CANDIDATE", "PUBLISHED", "SUPERSEDED"]}, "collectionFormat": "multi"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/horizons/{id}/schedules/published": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "Get the published schedule of a horizon",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No published schedule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/generation-jobs/{id}": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "Get the state of a background generation run",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}": {
            "get": {
                "tags": ["Scheduler"],
                "summary": "Get a schedule with its assignments",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Scheduler"],
                "summary": "Delete a candidate schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Only candidates can be deleted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}/publish": {
            "post": {
                "tags": ["Scheduler"],
                "summary": "Publish a candidate schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Published", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "SCHEDULING_CONFLICT or CONCURRENT_MODIFICATION", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}/export": {
            "post": {
                "tags": ["Exports"],
                "summary": "Export a schedule timetable",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ExportScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Export stored", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download an export through its signed token",
                "security": [],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "404": {"description": "Unknown export", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Link expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/conflicts/preview": {
            "post": {
                "tags": ["Reservations"],
                "summary": "Report conflicts for a candidate booking",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ConflictPreviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reservations": {
            "get": {
                "tags": ["Reservations"],
                "summary": "List reservation requests",
                "parameters": [
                    {"name": "horizonId", "in": "query", "type": "string"},
                    {"name": "spaceId", "in": "query", "type": "string"},
                    {"name": "requesterId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "array", "items": {"type": "string", "enum": ["PENDING", "APPROVED", "REJECTED", "DEFERRED"]}, "collectionFormat": "multi"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Reservations"],
                "summary": "Submit a reservation or schedule-change request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitReservationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Stored as PENDING with advisory conflicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reservations/{id}": {
            "get": {
                "tags": ["Reservations"],
                "summary": "Get a reservation request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reservations/{id}/validate": {
            "post": {
                "tags": ["Reservations"],
                "summary": "Approve, reject, defer or resubmit a request",
                "description": "A blocked approval returns 200 with status PENDING and the blocking conflicts.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ValidateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role may not take the action", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "INVALID_TRANSITION or CONCURRENT_MODIFICATION", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SlotInput": {
            "type": "object",
            "required": ["dayOfWeek", "start", "end"],
            "properties": {
                "dayOfWeek": {"type": "integer", "minimum": 1, "maximum": 7},
                "start": {"type": "string", "example": "09:00"},
                "end": {"type": "string", "example": "11:00"},
                "parity": {"type": "string", "enum": ["EVERY", "ODD", "EVEN"]}
            }
        },
        "SubmitReservationRequest": {
            "type": "object",
            "required": ["horizonId", "spaceId", "slots"],
            "properties": {
                "horizonId": {"type": "string"},
                "kind": {"type": "string", "enum": ["RESERVATION", "SCHEDULE_CHANGE"]},
                "spaceId": {"type": "string"},
                "slots": {"type": "array", "items": {"$ref": "#/definitions/SlotInput"}},
                "targetAssignmentId": {"type": "string"},
                "teacherId": {"type": "string"},
                "purpose": {"type": "string"},
                "headcount": {"type": "integer"},
                "requiredEquipment": {"type": "array", "items": {"type": "string"}},
                "priorityClass": {"type": "string", "enum": ["LOW", "NORMAL", "HIGH", "URGENT"]}
            }
        },
        "ConflictPreviewRequest": {
            "type": "object",
            "required": ["horizonId", "spaceId", "slots"],
            "properties": {
                "horizonId": {"type": "string"},
                "spaceId": {"type": "string"},
                "slots": {"type": "array", "items": {"$ref": "#/definitions/SlotInput"}},
                "teacherId": {"type": "string"},
                "headcount": {"type": "integer"},
                "requiredEquipment": {"type": "array", "items": {"type": "string"}},
                "priorityClass": {"type": "string", "enum": ["LOW", "NORMAL", "HIGH", "URGENT"]},
                "targetAssignmentId": {"type": "string"}
            }
        },
        "ValidateRequest": {
            "type": "object",
            "required": ["action"],
            "properties": {
                "action": {"type": "string", "enum": ["approve", "reject", "defer", "resubmit"]},
                "comment": {"type": "string"},
                "expectedVersion": {"type": "integer"}
            }
        },
        "ExportScheduleRequest": {
            "type": "object",
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "spaceId": {"type": "string"},
                "teacherId": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "limit": {"type": "integer"},
                "offset": {"type": "integer"},
                "total": {"type": "integer"}
            }
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
