package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Kairos Lead API",
        "description": "Receives website contact form submissions and forwards them to the sales chat.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http",
        "https"
    ],
    "tags": [
        {"name": "Lead", "description": "Website contact form intake"},
        {"name": "system", "description": "Liveness and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["system"],
                "summary": "Liveness probe",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/HealthResponse"}}
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": ["system"],
                "summary": "Prometheus metrics",
                "produces": ["text/plain"],
                "responses": {
                    "200": {"description": "Prometheus exposition format"}
                }
            }
        },
        "/lead": {
            "post": {
                "tags": ["Lead"],
                "summary": "Submit a website lead",
                "description": "Forwards a contact form submission to the sales chat. Requests from origins outside the allow-list are rejected, and each client IP is rate limited.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LeadRequest"}}
                ],
                "responses": {
                    "200": {"description": "Forwarded", "schema": {"$ref": "#/definitions/Envelope"}},
                    "403": {"description": "Origin not allowed", "schema": {"$ref": "#/definitions/Envelope"}},
                    "422": {"description": "Invalid payload or email", "schema": {"$ref": "#/definitions/Envelope"}},
                    "429": {"description": "Too many requests", "schema": {"$ref": "#/definitions/Envelope"}},
                    "500": {"description": "Sender not configured", "schema": {"$ref": "#/definitions/Envelope"}},
                    "502": {"description": "Telegram send failed", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        }
    },
    "definitions": {
        "LeadRequest": {
            "type": "object",
            "required": ["name", "email", "message"],
            "properties": {
                "name": {"type": "string", "example": "Ada"},
                "email": {"type": "string", "example": "ada@example.com"},
                "message": {"type": "string", "example": "Hello"}
            }
        },
        "HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["ok", "degraded"]},
                "checks": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "Envelope": {
            "type": "object",
            "properties": {
                "ok": {"type": "boolean"},
                "error": {"type": "string", "enum": ["validation_error", "invalid_email", "origin_not_allowed", "rate_limited", "not_configured", "telegram_send_failed", "internal_error"]},
                "detail": {"type": "string"}
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
