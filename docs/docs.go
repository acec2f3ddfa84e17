// Package docs 首页时间线服务的 OpenAPI 描述，供 /swagger 使用
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
        "/api/v1/accounts": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["账号"],
                "summary": "创建账号",
                "parameters": [
                    {"description": "用户名", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.registerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/posts": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["帖子"],
                "summary": "发帖",
                "parameters": [
                    {"type": "integer", "description": "当前账号ID", "name": "X-Account-ID", "in": "header", "required": true},
                    {"description": "帖子内容", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.publishRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/timelines/home": {
            "get": {
                "produces": ["application/json"],
                "tags": ["时间线"],
                "summary": "首页时间线",
                "parameters": [
                    {"type": "integer", "description": "当前账号ID", "name": "X-Account-ID", "in": "header", "required": true},
                    {"type": "integer", "description": "条数，默认 20，最大 40", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "只返回 id 小于该值的帖子", "name": "max_id", "in": "query"},
                    {"type": "integer", "description": "只返回 id 大于该值的帖子", "name": "since_id", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/timelines/home/touch": {
            "post": {
                "produces": ["application/json"],
                "tags": ["时间线"],
                "summary": "活跃上报",
                "parameters": [
                    {"type": "integer", "description": "当前账号ID", "name": "X-Account-ID", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/relations/{action}": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["关系链"],
                "summary": "关注/取消关注/屏蔽/取消屏蔽/静音/取消静音",
                "parameters": [
                    {"enum": ["follow", "unfollow", "block", "unblock", "mute", "unmute"], "type": "string", "name": "action", "in": "path", "required": true},
                    {"type": "integer", "description": "当前账号ID", "name": "X-Account-ID", "in": "header", "required": true},
                    {"description": "目标账号", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.relationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/relations/{account_id}/following": {
            "get": {
                "tags": ["关系链"],
                "summary": "查询关注列表",
                "parameters": [
                    {"type": "integer", "description": "账号ID", "name": "account_id", "in": "path", "required": true},
                    {"type": "integer", "default": 1, "description": "页码", "name": "page", "in": "query"},
                    {"type": "integer", "default": 10, "description": "每页数量", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        },
        "/api/v1/relations/{account_id}/fans": {
            "get": {
                "tags": ["关系链"],
                "summary": "查询粉丝列表（来自冗余表）",
                "parameters": [
                    {"type": "integer", "description": "账号ID", "name": "account_id", "in": "path", "required": true},
                    {"type": "integer", "default": 1, "description": "页码", "name": "page", "in": "query"},
                    {"type": "integer", "default": 10, "description": "每页数量", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Response"}}
                }
            }
        }
    },
    "definitions": {
        "handler.registerRequest": {
            "type": "object",
            "required": ["username"],
            "properties": {"username": {"type": "string", "maxLength": 64, "minLength": 1}}
        },
        "handler.relationRequest": {
            "type": "object",
            "required": ["target_id"],
            "properties": {"target_id": {"type": "integer"}}
        },
        "handler.publishRequest": {
            "type": "object",
            "properties": {
                "text": {"type": "string", "maxLength": 5000},
                "visibility": {"type": "string", "enum": ["public", "unlisted", "private", "direct"]},
                "in_reply_to_id": {"type": "integer"},
                "reblog_of_id": {"type": "integer"},
                "mentions": {"type": "array", "items": {"type": "integer"}}
            }
        },
        "response.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "data": {},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo 可在运行时覆盖 Host 等字段
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Home Timeline API",
	Description:      "首页时间线扇出与读取服务",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
