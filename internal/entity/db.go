package entity

// Re-export database entities and common column types so most packages
// only need to import internal/entity.

import (
	"atelier/internal/entity/common"
	"atelier/internal/entity/db"
)

// Database entity aliases
type DbImage = db.Image
type DbPrompt = db.Prompt
type DbUser = db.User

// Common type aliases
type StringArray = common.StringArray
type JSONMap = common.JSONMap
type Response = common.Response
type ResponseItems = common.ResponseItems
type Meta = common.Meta
type BaseParams = common.BaseParams

// Role constants
const (
	UserRoleAdmin = db.UserRoleAdmin
	UserRoleUser  = db.UserRoleUser
)
