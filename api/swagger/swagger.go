package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "TA Scheduler API",
        "description": "Weekly TA shift scheduling: schedule lifecycle, preference intake and assignment dispatch.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Schedule", "description": "Schedule lifecycle and algorithm dispatch"},
        {"name": "TA", "description": "TA roster and weekly preferences"}
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
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/schedule/initSchedule": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Initialise a new weekly schedule",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/InitScheduleRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid interval or capacity", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/getSchedule": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Fetch a schedule",
                "parameters": [
                    {"name": "schedule_id", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/getLatestScheduleId": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Fetch the active schedule ID",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No schedule exists", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/update": {
            "put": {
                "tags": ["Schedule"],
                "summary": "Merge changes into a schedule",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/template": {
            "put": {
                "tags": ["Schedule"],
                "summary": "Apply role demand per slot",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApplyTemplateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal lifecycle state", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/importDataToAlg": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Export schedule and roster for the algorithm",
                "parameters": [
                    {"name": "schedule_id", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/runAlgorithm": {
            "post": {
                "tags": ["Schedule"],
                "summary": "Dispatch the assignment algorithm",
                "responses": {
                    "200": {"description": "Published", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal state or contract violation", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Algorithm failed or timed out", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedule/export": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Download the weekly roster",
                "parameters": [
                    {"name": "schedule_id", "in": "query", "type": "integer"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ta/create": {
            "post": {
                "tags": ["TA"],
                "summary": "Register a teaching assistant",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTARequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ta": {
            "get": {
                "tags": ["TA"],
                "summary": "List the TA roster",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ta/{id}": {
            "get": {
                "tags": ["TA"],
                "summary": "Fetch one TA",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ta/preferences": {
            "post": {
                "tags": ["TA"],
                "summary": "Submit weekly preferences",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitPreferencesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed or unaligned preference", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Staffing": {
            "type": "object",
            "properties": {
                "min_role": {"type": "integer", "enum": [0, 1, 2]},
                "count": {"type": "integer"}
            }
        },
        "InitScheduleRequest": {
            "type": "object",
            "required": ["start_interval_time", "end_interval_time", "shift_duration"],
            "properties": {
                "start_interval_time": {"type": "string", "example": "7:00"},
                "end_interval_time": {"type": "string", "example": "00:00"},
                "shift_duration": {"type": "integer", "example": 90},
                "staffing_capacity": {"$ref": "#/definitions/Staffing"}
            }
        },
        "Shift": {
            "type": "object",
            "properties": {
                "shift_id": {"type": "string", "example": "m1"},
                "start_time": {"type": "string"},
                "end_time": {"type": "string"},
                "role": {"type": "string", "enum": ["LAB", "OFFICE_HOURS"]},
                "is_empty": {"type": "boolean"},
                "staffing_capacity": {"$ref": "#/definitions/Staffing"},
                "tas_scheduled": {"type": "array", "items": {"type": "string"}}
            }
        },
        "UpdateScheduleRequest": {
            "type": "object",
            "required": ["schedule_id"],
            "properties": {
                "schedule_id": {"type": "integer"},
                "start_interval_time": {"type": "string"},
                "end_interval_time": {"type": "string"},
                "shift_duration": {"type": "integer"},
                "monday": {"type": "array", "items": {"$ref": "#/definitions/Shift"}},
                "tuesday": {"type": "array", "items": {"$ref": "#/definitions/Shift"}},
                "wednesday": {"type": "array", "items": {"$ref": "#/definitions/Shift"}},
                "thursday": {"type": "array", "items": {"$ref": "#/definitions/Shift"}},
                "friday": {"type": "array", "items": {"$ref": "#/definitions/Shift"}},
                "saturday": {"type": "array", "items": {"$ref": "#/definitions/Shift"}},
                "sunday": {"type": "array", "items": {"$ref": "#/definitions/Shift"}}
            }
        },
        "ApplyTemplateRequest": {
            "type": "object",
            "required": ["schedule_id", "slot_roles"],
            "properties": {
                "schedule_id": {"type": "integer"},
                "slot_roles": {
                    "type": "object",
                    "additionalProperties": {"type": "string", "enum": ["LAB", "OFFICE_HOURS"]},
                    "example": {"m-7:00": "LAB", "tu-8:30": "OFFICE_HOURS"}
                }
            }
        },
        "CreateTARequest": {
            "type": "object",
            "required": ["ta_id", "first_name", "last_name"],
            "properties": {
                "ta_id": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "is_tf": {"type": "boolean"},
                "lab_perm": {"type": "integer", "enum": [0, 1, 2]}
            }
        },
        "SubmitPreferencesRequest": {
            "type": "object",
            "required": ["ta_id", "preferences"],
            "properties": {
                "ta_id": {"type": "string"},
                "preferences": {
                    "type": "array",
                    "items": {"type": "string", "example": "m:7:00-8:30:2"}
                }
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
