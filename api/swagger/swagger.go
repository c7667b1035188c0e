package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "OpenLearn LMS API",
        "description": "Reporting and aggregation service for the OpenLearn platform",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Authentication", "description": "Login, refresh and session management"},
        {"name": "Instructor", "description": "Gradebook, engagement and export reports"},
        {"name": "Search", "description": "Unified content search"},
        {"name": "Admin", "description": "Platform-wide analytics"},
        {"name": "Account", "description": "Privacy settings"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "responses": {
                    "200": {"description": "Token pair issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "Token pair rotated"},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/instructor/courses/{id}/marks": {
            "get": {
                "tags": ["Instructor"],
                "summary": "Course gradebook",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Grade report"},
                    "404": {"description": "Course not found or not owned"}
                }
            }
        },
        "/instructor/analytics": {
            "get": {
                "tags": ["Instructor"],
                "summary": "Engagement analytics",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Engagement report"}
                }
            }
        },
        "/instructor/courses/{id}/reports": {
            "post": {
                "tags": ["Instructor"],
                "summary": "Queue gradebook export",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "202": {"description": "Export job queued"}
                }
            }
        },
        "/search": {
            "get": {
                "tags": ["Search"],
                "summary": "Unified search",
                "responses": {
                    "200": {"description": "Ranked results"},
                    "400": {"description": "Invalid parameters"}
                }
            }
        },
        "/analytics/dashboard": {
            "get": {
                "tags": ["Admin"],
                "summary": "Admin dashboard",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Platform aggregates"},
                    "403": {"description": "Admin role required"}
                }
            }
        },
        "/me/privacy": {
            "get": {
                "tags": ["Account"],
                "summary": "Privacy settings",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Current settings"}
                }
            }
        }
    },
    "definitions": {
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
                "pagination": {"type": "object"},
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
