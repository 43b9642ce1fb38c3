package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Exam Scheduler API",
        "description": "Exam timetable generation, conflict analysis, quality scoring and schedule versioning",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {
            "name": "ExamSchedules",
            "description": "Schedule generation and sessions"
        },
        {
            "name": "Conflicts",
            "description": "Conflict detection and change impact"
        },
        {
            "name": "Versions",
            "description": "Schedule versions, diffs and exports"
        },
        {
            "name": "Quality",
            "description": "Quality trends"
        }
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Liveness check",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check of Postgres and Redis",
                "responses": {
                    "200": {
                        "description": "Ready"
                    },
                    "503": {
                        "description": "Degraded"
                    }
                }
            }
        },
        "/metrics": {
            "get": {
                "summary": "Prometheus metrics",
                "produces": [
                    "text/plain"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/api/v1/exam-schedules/generate": {
            "post": {
                "tags": [
                    "ExamSchedules"
                ],
                "summary": "Generate an exam schedule",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/GenerateExamScheduleRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid problem",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/exam-schedules/{scheduleId}/conflicts/analyze": {
            "post": {
                "tags": [
                    "Conflicts"
                ],
                "summary": "Analyze conflicts of a committed schedule",
                "parameters": [
                    {
                        "name": "scheduleId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/AnalyzeConflictsRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/exam-schedules/{scheduleId}/conflicts": {
            "get": {
                "tags": [
                    "Conflicts"
                ],
                "summary": "Get stored conflicts",
                "parameters": [
                    {
                        "name": "scheduleId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/exam-schedules/{scheduleId}/conflicts/impact": {
            "post": {
                "tags": [
                    "Conflicts"
                ],
                "summary": "Preview the conflict impact of one exam edit",
                "parameters": [
                    {
                        "name": "scheduleId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ChangeImpactRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Exam not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/exam-schedules/{scheduleId}/versions": {
            "post": {
                "tags": [
                    "Versions"
                ],
                "summary": "Snapshot a schedule into a new version",
                "parameters": [
                    {
                        "name": "scheduleId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateVersionRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "get": {
                "tags": [
                    "Versions"
                ],
                "summary": "List versions",
                "parameters": [
                    {
                        "name": "scheduleId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "page",
                        "in": "query",
                        "type": "integer"
                    },
                    {
                        "name": "pageSize",
                        "in": "query",
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/exam-schedules/{scheduleId}/versions/compare": {
            "get": {
                "tags": [
                    "Versions"
                ],
                "summary": "Diff two versions",
                "parameters": [
                    {
                        "name": "scheduleId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "from",
                        "in": "query",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "to",
                        "in": "query",
                        "required": true,
                        "type": "integer"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "422": {
                        "description": "Corrupt snapshot",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/exam-schedules/{scheduleId}/versions/{version}/export": {
            "get": {
                "tags": [
                    "Versions"
                ],
                "summary": "Render a version as CSV or PDF",
                "parameters": [
                    {
                        "name": "scheduleId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "version",
                        "in": "path",
                        "required": true,
                        "type": "integer"
                    },
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "csv",
                            "pdf"
                        ]
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/exam-schedules/{scheduleId}/trends": {
            "get": {
                "tags": [
                    "Quality"
                ],
                "summary": "Compare the two latest quality snapshots",
                "parameters": [
                    {
                        "name": "scheduleId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "412": {
                        "description": "Fewer than two snapshots",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/exam-sessions/{sessionId}": {
            "get": {
                "tags": [
                    "ExamSchedules"
                ],
                "summary": "Get a scheduling session",
                "parameters": [
                    {
                        "name": "sessionId",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Unknown session",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "CourseRequest": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "studentCount": {
                    "type": "integer"
                },
                "professorIds": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "mandatory": {
                    "type": "boolean"
                },
                "estimatedDuration": {
                    "type": "integer"
                },
                "requiredEquipment": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "requiresAccessibility": {
                    "type": "boolean"
                }
            }
        },
        "RoomRequest": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "capacity": {
                    "type": "integer"
                },
                "equipment": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "accessible": {
                    "type": "boolean"
                }
            }
        },
        "TimeRangeRequest": {
            "type": "object",
            "properties": {
                "start": {
                    "type": "string"
                },
                "end": {
                    "type": "string"
                }
            }
        },
        "PreferenceRequest": {
            "type": "object",
            "properties": {
                "professorId": {
                    "type": "string"
                },
                "courseId": {
                    "type": "string"
                },
                "preferredDates": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "unavailableDates": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "preferredTimes": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/TimeRangeRequest"
                    }
                },
                "unavailableTimes": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/TimeRangeRequest"
                    }
                },
                "preferredRooms": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "priority": {
                    "type": "integer"
                }
            }
        },
        "ConstraintsRequest": {
            "type": "object",
            "properties": {
                "workStart": {
                    "type": "string"
                },
                "workEnd": {
                    "type": "string"
                },
                "minExamDuration": {
                    "type": "integer"
                },
                "minGapMinutes": {
                    "type": "integer"
                },
                "maxExamsPerDay": {
                    "type": "integer"
                },
                "maxExamsPerRoom": {
                    "type": "integer"
                },
                "slotGranularity": {
                    "type": "integer"
                },
                "allowWeekends": {
                    "type": "boolean"
                }
            }
        },
        "GenerateExamScheduleRequest": {
            "type": "object",
            "properties": {
                "scheduleId": {
                    "type": "string"
                },
                "sessionId": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "startDate": {
                    "type": "string"
                },
                "endDate": {
                    "type": "string"
                },
                "strategy": {
                    "type": "string",
                    "enum": [
                        "BACKTRACKING_FC",
                        "SIMULATED_ANNEALING",
                        "HYBRID",
                        "GREEDY_BACKTRACKING"
                    ]
                },
                "courses": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/CourseRequest"
                    }
                },
                "rooms": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/RoomRequest"
                    }
                },
                "preferences": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/PreferenceRequest"
                    }
                },
                "constraints": {
                    "$ref": "#/definitions/ConstraintsRequest"
                },
                "useUpstreamData": {
                    "type": "boolean"
                },
                "skipOptimizer": {
                    "type": "boolean"
                }
            }
        },
        "ScheduledExam": {
            "type": "object"
        },
        "AnalyzeConflictsRequest": {
            "type": "object",
            "properties": {
                "exams": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/ScheduledExam"
                    }
                },
                "enrollment": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "integer"
                    }
                }
            }
        },
        "ChangeImpactRequest": {
            "type": "object",
            "properties": {
                "exams": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/ScheduledExam"
                    }
                },
                "enrollment": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "integer"
                    }
                },
                "examId": {
                    "type": "string"
                },
                "field": {
                    "type": "string",
                    "enum": [
                        "date",
                        "startTime",
                        "roomId"
                    ]
                },
                "value": {
                    "type": "string"
                },
                "roomCapacity": {
                    "type": "integer"
                },
                "roomName": {
                    "type": "string"
                }
            }
        },
        "CreateVersionRequest": {
            "type": "object",
            "properties": {
                "label": {
                    "type": "string"
                },
                "schedule": {
                    "type": "object",
                    "properties": {
                        "name": {
                            "type": "string"
                        },
                        "status": {
                            "type": "string"
                        },
                        "startDate": {
                            "type": "string"
                        },
                        "endDate": {
                            "type": "string"
                        }
                    }
                },
                "exams": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/ScheduledExam"
                    }
                },
                "commentCount": {
                    "type": "integer"
                },
                "adjustmentCount": {
                    "type": "integer"
                }
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {
                    "type": "integer"
                },
                "page_size": {
                    "type": "integer"
                },
                "total_count": {
                    "type": "integer"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "pagination": {
                    "$ref": "#/definitions/Pagination"
                },
                "meta": {
                    "type": "object"
                }
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
