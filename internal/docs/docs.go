// Package docs registers the OpenAPI description of the REST surface with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/v1/auth/guest": {
            "post": {
                "tags": ["auth"],
                "summary": "Issue a guest identity",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/GuestRequest"}}],
                "responses": {"200": {"description": "token and identity"}, "400": {"description": "invalid input"}}
            }
        },
        "/v1/rooms": {
            "post": {
                "tags": ["rooms"],
                "summary": "Create a room hosted by the caller",
                "security": [{"Bearer": []}],
                "responses": {"201": {"description": "game state"}, "400": {"description": "invalid settings"}}
            }
        },
        "/v1/rooms/{code}": {
            "get": {
                "tags": ["rooms"],
                "summary": "Full current game state, used to resync after reconnecting",
                "security": [{"Bearer": []}],
                "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}],
                "responses": {"200": {"description": "game state"}, "404": {"description": "room not found"}}
            }
        },
        "/v1/rooms/{code}/settings": {
            "put": {"tags": ["rooms"], "summary": "Update lobby settings (host only)", "security": [{"Bearer": []}],
                "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}],
                "responses": {"200": {"description": "game state"}, "403": {"description": "not host"}, "409": {"description": "game started"}}}
        },
        "/v1/rooms/{code}/join": {
            "post": {"tags": ["rooms"], "summary": "Join a room as a player", "security": [{"Bearer": []}],
                "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}],
                "responses": {"200": {"description": "game state"}, "409": {"description": "already in room or room inactive"}}}
        },
        "/v1/rooms/{code}/leave": {
            "post": {"tags": ["rooms"], "summary": "Leave a room", "security": [{"Bearer": []}],
                "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}],
                "responses": {"204": {"description": "left"}}}
        },
        "/v1/rooms/{code}/players/{userId}/kick": {
            "post": {"tags": ["rooms"], "summary": "Kick a player (host only)", "security": [{"Bearer": []}],
                "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}, {"in": "path", "name": "userId", "type": "string", "required": true}],
                "responses": {"204": {"description": "kicked"}, "403": {"description": "not host or self kick"}}}
        },
        "/v1/rooms/{code}/end": {
            "post": {"tags": ["rooms"], "summary": "Close the room to new joins (host only)", "security": [{"Bearer": []}],
                "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}],
                "responses": {"204": {"description": "ended"}}}
        },
        "/v1/rooms/{code}/start": {
            "post": {"tags": ["game"], "summary": "Start the game (host only)", "security": [{"Bearer": []}],
                "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}],
                "responses": {"200": {"description": "game state"}, "403": {"description": "not host"}, "409": {"description": "already started"}}}
        },
        "/v1/rooms/{code}/guesses": {
            "post": {"tags": ["game"], "summary": "Submit a guess for the live round", "security": [{"Bearer": []}],
                "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}],
                "responses": {"200": {"description": "guess feedback"}, "409": {"description": "no live round"}}}
        },
        "/v1/rooms/{code}/messages": {
            "post": {"tags": ["game"], "summary": "Post a chat message", "security": [{"Bearer": []}],
                "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}],
                "responses": {"201": {"description": "message"}}}
        },
        "/v1/rooms/{code}/songs": {
            "post": {"tags": ["songs"], "summary": "Contribute a song", "security": [{"Bearer": []}],
                "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}],
                "responses": {"201": {"description": "song"}, "409": {"description": "duplicate source or limit reached"}}}
        },
        "/v1/rooms/{code}/songs/{songId}": {
            "delete": {"tags": ["songs"], "summary": "Remove a song", "security": [{"Bearer": []}],
                "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}, {"in": "path", "name": "songId", "type": "string", "required": true}],
                "responses": {"204": {"description": "removed"}}}
        },
        "/v1/rooms/{code}/leaderboard": {
            "get": {"tags": ["rooms"], "summary": "Top scores", "security": [{"Bearer": []}],
                "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}, {"in": "query", "name": "limit", "type": "integer"}],
                "responses": {"200": {"description": "entries"}}}
        },
        "/v1/catalog/search": {
            "get": {"tags": ["songs"], "summary": "Search the track catalog", "security": [{"Bearer": []}],
                "parameters": [{"in": "query", "name": "q", "type": "string", "required": true}],
                "responses": {"200": {"description": "tracks"}, "503": {"description": "catalog unavailable"}}}
        },
        "/v1/ws/rooms/{code}": {
            "get": {"tags": ["push"], "summary": "WebSocket push channel; token in the query string",
                "parameters": [{"in": "path", "name": "code", "type": "string", "required": true}, {"in": "query", "name": "token", "type": "string", "required": true}],
                "responses": {"101": {"description": "switching protocols"}}}
        }
    },
    "definitions": {
        "GuestRequest": {
            "type": "object",
            "required": ["displayName"],
            "properties": {
                "displayName": {"type": "string"},
                "avatarUrl": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Guess The Song API",
	Description:      "Room lifecycle, game actions and the push channel of the guess-the-song server.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// Doc renders the registered document.
func Doc() (string, error) {
	return swag.ReadDoc(SwaggerInfo.InstanceName())
}
