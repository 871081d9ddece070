package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Exam Sheets API",
        "description": "Generates printable answer sheets from Moodle quizzes and processes the scanned results.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Generation", "description": "Answer sheet generation from quiz exports and rosters"},
        {"name": "Evaluation", "description": "Scanned answer sheet processing"},
        {"name": "Statistics", "description": "Chart data computed from result exports"},
        {"name": "Health", "description": "Liveness and readiness"}
    ],
    "paths": {
        "/healthcheck": {
            "get": {
                "tags": ["Health"],
                "summary": "Health check",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Status"}}
                }
            }
        },
        "/0/generate": {
            "post": {
                "tags": ["Generation"],
                "summary": "Generate answer sheets from a quiz export and a student roster",
                "consumes": ["multipart/form-data"],
                "produces": ["application/pdf", "application/json"],
                "parameters": [
                    {"name": "quiz", "in": "formData", "type": "file", "required": true, "description": "Moodle quiz XML export"},
                    {"name": "students", "in": "formData", "type": "file", "required": true, "description": "Student roster CSV (Windows-1250, ';')"},
                    {"name": "date", "in": "formData", "type": "string", "format": "date", "description": "Exam date, YYYY-MM-DD (default today)"}
                ],
                "responses": {
                    "200": {"description": "Print artifact from the print service", "schema": {"type": "file"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "415": {"description": "Unsupported file type", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "422": {"description": "Unprocessable input", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "502": {"description": "Print service failure", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/0/generate/from-xml": {
            "post": {
                "tags": ["Generation"],
                "summary": "Generate answer sheets from a quiz export alone",
                "consumes": ["multipart/form-data"],
                "produces": ["application/pdf", "application/json"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true, "description": "Moodle quiz XML export"},
                    {"name": "date", "in": "formData", "type": "string", "format": "date", "description": "Exam date, YYYY-MM-DD (default today)"}
                ],
                "responses": {
                    "200": {"description": "Print artifact from the print service", "schema": {"type": "file"}},
                    "422": {"description": "Unprocessable input", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "502": {"description": "Print service failure", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/0/generate/statistics": {
            "post": {
                "tags": ["Statistics"],
                "summary": "Compute quiz statistics",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json", "application/pdf"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true, "description": "Result CSV export (Windows-1250, ',')"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["json", "pdf"], "default": "json"},
                    {"name": "lang", "in": "query", "type": "string", "description": "Label language; falls back to Accept-Language"}
                ],
                "responses": {
                    "200": {
                        "description": "Bar and pie series, or a PDF report",
                        "headers": {"X-Cache": {"type": "string", "description": "HIT or MISS"}},
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/ChartSeries"}}
                    },
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "422": {"description": "Unprocessable input", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/0/process/arks": {
            "post": {
                "tags": ["Evaluation"],
                "summary": "Evaluate scanned answer sheets",
                "description": "Sends the scan to the OCR service and returns result.zip with result.csv and log.txt.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/zip", "application/json"],
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true, "description": "Scanned answer sheets (pdf, png, jpeg)"},
                    {"name": "questions", "in": "formData", "type": "integer", "minimum": 0, "description": "Number of questions every sheet must carry"}
                ],
                "responses": {
                    "200": {"description": "result.zip", "schema": {"type": "file"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "415": {"description": "Unsupported file type", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "422": {"description": "Unprocessable input", "schema": {"$ref": "#/definitions/ErrorBody"}},
                    "502": {"description": "OCR service failure", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        }
    },
    "definitions": {
        "Status": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"}
            }
        },
        "ErrorBody": {
            "type": "object",
            "properties": {
                "errorMsg": {"type": "string", "example": "Caught an error: document does not contain quiz"},
                "errorData": {"type": "object"}
            }
        },
        "PieSlice": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "value": {"type": "integer"},
                "label": {"type": "string"}
            }
        },
        "ChartSeries": {
            "type": "object",
            "description": "BAR_CHART values map questionN to the average share of points; PIE_CHART values are PieSlice items.",
            "properties": {
                "name": {"type": "string"},
                "graphType": {"type": "string", "enum": ["BAR_CHART", "PIE_CHART"]},
                "values": {"type": "object"}
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
