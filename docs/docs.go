// Package docs registers the OpenAPI description served by the Swagger UI.
// Regenerate with: swag init -g cmd/intake/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/openapi/sainiu/getInfo": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Intake"],
                "summary": "Push one inbound chat event",
                "operationId": "pushEvent",
                "parameters": [
                    {"description": "Platform event", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.InboundEvent"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.PushResponse"}},
                    "400": {"description": "Malformed or incomplete event", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Processing failed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/api/v1/tracking": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Tracking"],
                "summary": "List tracking records (paginated)",
                "operationId": "listTracking",
                "parameters": [
                    {"type": "string", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"},
                    {"type": "boolean", "description": "Only finished (true) or open (false) records", "name": "finished", "in": "query"},
                    {"minimum": 1, "type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"},
                    {"maximum": 100, "minimum": 1, "type": "integer", "default": 20, "description": "Items per page", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListTrackingResponse"}, "headers": {"ETag": {"type": "string", "description": "Weak ETag for current result"}}},
                    "304": {"description": "Not Modified", "schema": {"type": "string"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/api/v1/tracking/{messageId}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Tracking"],
                "summary": "Get a tracking record",
                "operationId": "getTracking",
                "parameters": [
                    {"type": "string", "description": "Platform message id", "name": "messageId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.ProcessTracking"}},
                    "404": {"description": "Record not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/api/v1/inventory/{merchantCode}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Inventory"],
                "summary": "Look up stock by merchant code",
                "operationId": "getInventory",
                "parameters": [
                    {"type": "string", "description": "Merchant code", "name": "merchantCode", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.InventoryResponse"}},
                    "404": {"description": "Product not found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/api/v1/stock/check": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Inventory"],
                "summary": "Check stock for several merchant codes",
                "operationId": "checkStock",
                "parameters": [
                    {"description": "Merchant codes", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CheckStockRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.CheckStockResponse"}},
                    "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness probe",
                "operationId": "health",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ProbeResponse"}}}
            }
        },
        "/debug/kv": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Ping the key-value store",
                "operationId": "debugKV",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ProbeResponse"}},
                    "503": {"description": "Store unreachable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/debug/db": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Ping the database",
                "operationId": "debugDB",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ProbeResponse"}},
                    "503": {"description": "Database unreachable", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.InboundEvent": {
            "type": "object",
            "properties": {
                "messageId": {"type": "string"},
                "buyerUid": {"type": "string"},
                "loginId": {"type": "string"},
                "buyerNick": {"type": "string"},
                "message": {"type": "string"},
                "type": {"type": "string", "example": "文本消息"},
                "time": {"type": "string", "example": "2024-05-01 10:00:00"},
                "codeType": {"type": "string", "example": "CHAT_RECEIVE_MSG"},
                "traceId": {"type": "string"}
            }
        },
        "domain.ProcessTracking": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "message_id": {"type": "string"},
                "message_type": {"type": "string"},
                "fetch_info": {"type": "string"},
                "preprocess_info": {"type": "string"},
                "engine_call": {"type": "string"},
                "engine_call_complete": {"type": "string"},
                "platform_call": {"type": "string"},
                "platform_call_success": {"type": "string"},
                "last_step": {"type": "integer"},
                "handler": {"type": "string"},
                "is_finished": {"type": "integer"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string", "example": "123e4567-e89b-12d3-a456-426614174000"},
                "code": {"type": "string", "example": "not_found"},
                "message": {"type": "string", "example": "resource not found"}
            }
        },
        "handlers.PushResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "success"},
                "outcome": {"type": "string", "example": "processed"}
            }
        },
        "handlers.Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "has_next": {"type": "boolean"}
            }
        },
        "handlers.ListTrackingResponse": {
            "type": "object",
            "properties": {
                "records": {"type": "array", "items": {"$ref": "#/definitions/domain.ProcessTracking"}},
                "pagination": {"$ref": "#/definitions/handlers.Pagination"}
            }
        },
        "handlers.InventoryResponse": {
            "type": "object",
            "properties": {
                "merchant_code": {"type": "string", "example": "KX-2231"},
                "model": {"type": "string", "example": "DZ120V1D"},
                "brand": {"type": "string", "example": "Daikin"},
                "quantity": {"type": "integer", "example": 4}
            }
        },
        "handlers.CheckStockRequest": {
            "type": "object",
            "required": ["products"],
            "properties": {
                "products": {"type": "array", "items": {"type": "string"}}
            }
        },
        "handlers.CheckStockResponse": {
            "type": "object",
            "properties": {
                "results": {"type": "array", "items": {"$ref": "#/definitions/services.StockStatus"}}
            }
        },
        "services.StockStatus": {
            "type": "object",
            "properties": {
                "merchant_code": {"type": "string"},
                "status": {"type": "string"},
                "quantity": {"type": "integer"}
            }
        },
        "handlers.ProbeResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"},
                "backend": {"type": "string", "example": "kv"}
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
	Title:            "Chat Intake API",
	Description:      "Inbound customer-chat intake: push endpoint, tracking and inventory views.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
