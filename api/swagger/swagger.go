package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Monitor API",
        "description": "Category-scoped data collection with administrator review for the university monitoring dashboard.",
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
        {
            "name": "Records",
            "description": "Category records and review"
        },
        {
            "name": "Assignments",
            "description": "Personnel assignments per category"
        },
        {
            "name": "Me",
            "description": "Caller permissions"
        },
        {
            "name": "Analytics",
            "description": "Approved-record aggregates"
        },
        {
            "name": "Export",
            "description": "Approved-record documents"
        }
    ],
    "paths": {
        "/me/permissions/{category}": {
            "get": {
                "tags": [
                    "Me"
                ],
                "summary": "Resolve the caller's permissions in a category",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "category",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "enum": [
                            "students",
                            "faculty",
                            "staff",
                            "pwd",
                            "indigenous",
                            "gpb",
                            "budget"
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
        "/me/assignments": {
            "get": {
                "tags": [
                    "Me"
                ],
                "summary": "List the caller's category assignments",
                "security": [
                    {
                        "BearerAuth": []
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
        "/categories/{category}/records": {
            "get": {
                "tags": [
                    "Records"
                ],
                "summary": "List records for the collection view",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "category",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "enum": [
                            "students",
                            "faculty",
                            "staff",
                            "pwd",
                            "indigenous",
                            "gpb",
                            "budget"
                        ]
                    },
                    {
                        "name": "period",
                        "in": "query",
                        "type": "string",
                        "description": "YYYY or YYYY-YYYY"
                    },
                    {
                        "name": "status",
                        "in": "query",
                        "type": "string",
                        "description": "Comma separated statuses"
                    },
                    {
                        "name": "page",
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
                    },
                    "403": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "post": {
                "tags": [
                    "Records"
                ],
                "summary": "Submit a record for review",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "category",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "enum": [
                            "students",
                            "faculty",
                            "staff",
                            "pwd",
                            "indigenous",
                            "gpb",
                            "budget"
                        ]
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SubmitRecordRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/categories/{category}/records/{id}": {
            "get": {
                "tags": [
                    "Records"
                ],
                "summary": "Get a record",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "category",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "enum": [
                            "students",
                            "faculty",
                            "staff",
                            "pwd",
                            "indigenous",
                            "gpb",
                            "budget"
                        ]
                    },
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
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
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "put": {
                "tags": [
                    "Records"
                ],
                "summary": "Edit a record, sending it back to pending",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "category",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "enum": [
                            "students",
                            "faculty",
                            "staff",
                            "pwd",
                            "indigenous",
                            "gpb",
                            "budget"
                        ]
                    },
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/EditRecordRequest"
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
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "delete": {
                "tags": [
                    "Records"
                ],
                "summary": "Remove a record",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "category",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "enum": [
                            "students",
                            "faculty",
                            "staff",
                            "pwd",
                            "indigenous",
                            "gpb",
                            "budget"
                        ]
                    },
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "403": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/categories/{category}/records/{id}/review": {
            "post": {
                "tags": [
                    "Records"
                ],
                "summary": "Approve or reject a pending record",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "category",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "enum": [
                            "students",
                            "faculty",
                            "staff",
                            "pwd",
                            "indigenous",
                            "gpb",
                            "budget"
                        ]
                    },
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ReviewRecordRequest"
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
                    "403": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/categories/{category}/analytics": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Aggregate approved records of a category",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "category",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "enum": [
                            "students",
                            "faculty",
                            "staff",
                            "pwd",
                            "indigenous",
                            "gpb",
                            "budget"
                        ]
                    },
                    {
                        "name": "period",
                        "in": "query",
                        "type": "string",
                        "description": "YYYY or YYYY-YYYY"
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
        "/analytics/overview": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Aggregate approved records across every category",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "period",
                        "in": "query",
                        "type": "string",
                        "description": "YYYY or YYYY-YYYY"
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
        "/categories/{category}/export": {
            "get": {
                "tags": [
                    "Export"
                ],
                "summary": "Download approved records",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "category",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "enum": [
                            "students",
                            "faculty",
                            "staff",
                            "pwd",
                            "indigenous",
                            "gpb",
                            "budget"
                        ]
                    },
                    {
                        "name": "period",
                        "in": "query",
                        "type": "string",
                        "description": "YYYY or YYYY-YYYY"
                    },
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "enum": [
                            "csv",
                            "pdf",
                            "xlsx"
                        ],
                        "default": "csv"
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
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/admin/assignments": {
            "get": {
                "tags": [
                    "Assignments"
                ],
                "summary": "List personnel assignments",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "category",
                        "in": "query",
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
                    "403": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "post": {
                "tags": [
                    "Assignments"
                ],
                "summary": "Grant a user capabilities in a category",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateAssignmentRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/admin/assignments/{category}/{id}": {
            "delete": {
                "tags": [
                    "Assignments"
                ],
                "summary": "Remove a personnel assignment",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "category",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "enum": [
                            "students",
                            "faculty",
                            "staff",
                            "pwd",
                            "indigenous",
                            "gpb",
                            "budget"
                        ]
                    },
                    {
                        "name": "id",
                        "in": "path",
                        "type": "string",
                        "required": true
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No Content"
                    },
                    "403": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/admin/system": {
            "get": {
                "tags": [
                    "Analytics"
                ],
                "summary": "Process instrumentation snapshot",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "SubmitRecordRequest": {
            "type": "object",
            "required": [
                "period",
                "payload"
            ],
            "properties": {
                "period": {
                    "type": "string"
                },
                "payload": {
                    "type": "object"
                }
            }
        },
        "EditRecordRequest": {
            "type": "object",
            "properties": {
                "period": {
                    "type": "string"
                },
                "payload": {
                    "type": "object"
                },
                "version": {
                    "type": "integer"
                }
            }
        },
        "ReviewRecordRequest": {
            "type": "object",
            "required": [
                "decision"
            ],
            "properties": {
                "decision": {
                    "type": "string",
                    "enum": [
                        "approve",
                        "reject"
                    ]
                },
                "note": {
                    "type": "string"
                },
                "version": {
                    "type": "integer"
                }
            }
        },
        "CreateAssignmentRequest": {
            "type": "object",
            "required": [
                "user_id",
                "role",
                "category"
            ],
            "properties": {
                "user_id": {
                    "type": "string",
                    "format": "email"
                },
                "name": {
                    "type": "string"
                },
                "role": {
                    "type": "string",
                    "enum": [
                        "STAFF",
                        "EDITOR"
                    ]
                },
                "category": {
                    "type": "string"
                },
                "can_add": {
                    "type": "boolean"
                },
                "can_edit": {
                    "type": "boolean"
                },
                "can_delete": {
                    "type": "boolean"
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
