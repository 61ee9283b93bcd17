package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academic Results API",
        "description": "Computes, stores and serves course results from assessment grades.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Token issuance"},
        {"name": "Results", "description": "Result computation and retrieval"},
        {"name": "Grades", "description": "Assessment marks"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Token issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/results/generate": {
            "post": {
                "tags": ["Results"],
                "summary": "Generate all results",
                "description": "Recomputes results for every fully graded enrollment. Incomplete enrollments are skipped.",
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "Batch summary", "schema": {"$ref": "#/definitions/GenerateResultsSummary"}}
                }
            }
        },
        "/admin/results/calculate": {
            "post": {
                "tags": ["Results"],
                "summary": "Calculate one result",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CalculateResultRequest"}}
                ],
                "responses": {
                    "200": {"description": "Stored result", "schema": {"$ref": "#/definitions/CalculateResultResponse"}},
                    "404": {"description": "Enrollment missing or ungraded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Enrollment not fully graded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No gradable assessments", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/results": {
            "get": {
                "tags": ["Results"],
                "summary": "List results",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "studentId", "type": "string"},
                    {"in": "query", "name": "courseId", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Results", "schema": {"type": "array", "items": {"$ref": "#/definitions/ResultView"}}}
                }
            }
        },
        "/admin/results/export": {
            "get": {
                "tags": ["Results"],
                "summary": "Export results",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]},
                    {"in": "query", "name": "studentId", "type": "string"},
                    {"in": "query", "name": "courseId", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File download", "schema": {"type": "file"}}
                }
            }
        },
        "/admin/students/{id}/results": {
            "get": {
                "tags": ["Results"],
                "summary": "Results of one student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Results", "schema": {"type": "array", "items": {"$ref": "#/definitions/ResultView"}}}
                }
            }
        },
        "/student/results": {
            "get": {
                "tags": ["Results"],
                "summary": "Results of the signed-in student",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Results", "schema": {"type": "array", "items": {"$ref": "#/definitions/ResultView"}}},
                    "403": {"description": "Not a student account", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/grades": {
            "get": {
                "tags": ["Grades"],
                "summary": "List grade entries",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "enrollmentId", "type": "string"},
                    {"in": "query", "name": "assessmentId", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Grades", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Grades"],
                "summary": "Record obtained marks",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/UpsertGradeRequest"}}
                ],
                "responses": {
                    "200": {"description": "Saved grade", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "CalculateResultRequest": {
            "type": "object",
            "required": ["enrollment_id"],
            "properties": {"enrollment_id": {"type": "string"}}
        },
        "UpsertGradeRequest": {
            "type": "object",
            "required": ["enrollment_id", "assessment_id", "obtained_marks"],
            "properties": {
                "enrollment_id": {"type": "string"},
                "assessment_id": {"type": "string"},
                "obtained_marks": {"type": "number", "minimum": 0}
            }
        },
        "Result": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "enrollment_id": {"type": "string"},
                "total_marks": {"type": "number"},
                "grade": {"type": "string"},
                "status": {"type": "string", "enum": ["Pass", "Fail"]},
                "calculated_at": {"type": "string", "format": "date-time"}
            }
        },
        "CalculateResultResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "result": {"$ref": "#/definitions/Result"}
            }
        },
        "ResultView": {
            "type": "object",
            "properties": {
                "result_id": {"type": "string"},
                "enrollment_id": {"type": "string"},
                "total_marks": {"type": "number"},
                "grade": {"type": "string"},
                "status": {"type": "string"},
                "academic_year": {"type": "string"},
                "student_id": {"type": "string"},
                "roll_no": {"type": "string"},
                "student_name": {"type": "string"},
                "course_id": {"type": "string"},
                "course_code": {"type": "string"},
                "course_name": {"type": "string"},
                "credit_hours": {"type": "integer"},
                "calculated_at": {"type": "string", "format": "date-time"}
            }
        },
        "ResultFailure": {
            "type": "object",
            "properties": {
                "enrollment_id": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "GenerateResultsSummary": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "total": {"type": "integer"},
                "generated": {"type": "integer"},
                "skipped": {"type": "integer"},
                "failed": {"type": "integer"},
                "pending": {"type": "integer"},
                "partial": {"type": "boolean"},
                "failures": {"type": "array", "items": {"$ref": "#/definitions/ResultFailure"}},
                "duration_ms": {"type": "integer"}
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
