// Package docs registers the OpenAPI document for the HTTP surface.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/rooms": {
            "post": {
                "tags": ["rooms"],
                "summary": "Create a room",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRoomInput"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Room"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/rooms/{roomId}": {
            "get": {
                "tags": ["rooms"],
                "summary": "Get a room",
                "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "roomId", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Room"}},
                    "403": {"description": "Access denied", "schema": {"$ref": "#/definitions/Error"}},
                    "404": {"description": "Room not found", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/rooms/{roomId}/participants": {
            "post": {
                "tags": ["rooms"],
                "summary": "Allow a user into a room",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "roomId", "type": "string", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"type": "object", "properties": {"userId": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Room"}},
                    "403": {"description": "Not the owner", "schema": {"$ref": "#/definitions/Error"}}
                }
            }
        },
        "/rooms/{roomId}/presence": {
            "get": {
                "tags": ["rooms"],
                "summary": "Live participants of a room",
                "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "roomId", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/stats": {
            "get": {
                "tags": ["stats"],
                "summary": "Live room and connection counts",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Missing or invalid token"}
                }
            }
        },
        "/ws": {
            "get": {
                "tags": ["session"],
                "summary": "Open a session WebSocket",
                "parameters": [{"in": "query", "name": "token", "type": "string", "required": true}],
                "responses": {
                    "101": {"description": "Switching protocols"},
                    "401": {"description": "Missing or invalid token"}
                }
            }
        }
    },
    "definitions": {
        "CreateRoomInput": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "ownerRole": {"type": "string", "enum": ["teacher", "interviewer"]},
                "mode": {"type": "string", "enum": ["teaching", "interview"]},
                "language": {"type": "string"},
                "allowedParticipants": {"type": "array", "items": {"type": "string"}},
                "problemTitle": {"type": "string"},
                "problemDescription": {"type": "string"},
                "timeComplexity": {"type": "string"},
                "spaceComplexity": {"type": "string"}
            }
        },
        "Room": {
            "type": "object",
            "properties": {
                "roomId": {"type": "string"},
                "name": {"type": "string"},
                "ownerId": {"type": "string"},
                "ownerRole": {"type": "string"},
                "allowedParticipants": {"type": "array", "items": {"type": "string"}},
                "mode": {"type": "string"},
                "code": {"type": "string"},
                "language": {"type": "string"},
                "isActive": {"type": "boolean"}
            }
        },
        "Error": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "Coderoom Session API",
	Description:      "Room bootstrap and live session coordination for collaborative code rooms",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
