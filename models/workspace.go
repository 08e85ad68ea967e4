package models

import (
	"time"
)

// WorkspaceRole is the role a user holds within a workspace
type WorkspaceRole string

const (
	RoleAdmin  WorkspaceRole = "ADMIN"
	RoleMember WorkspaceRole = "MEMBER"
)

// ValidRole reports whether r is one of the two assignable roles.
func ValidRole(r WorkspaceRole) bool {
	return r == RoleAdmin || r == RoleMember
}

// Workspace is the top-level tenant boundary; it owns projects and members
type Workspace struct {
	Base

	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Description string `json:"description"`
	InviteCode  string `gorm:"uniqueIndex;not null" json:"invite_code"`

	Members  []WorkspaceMember `gorm:"foreignKey:WorkspaceID" json:"members,omitempty"`
	Projects []Project         `gorm:"foreignKey:WorkspaceID" json:"projects,omitempty"`
}

// WorkspaceMember grants a user access to a workspace with a role.
// Unique per (user, workspace).
//
// No DeletedAt here: removing a member is a hard delete, so the same
// user can be re-invited without tripping the composite unique index.
type WorkspaceMember struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID      uint          `gorm:"not null;uniqueIndex:idx_workspace_member" json:"user_id"`
	WorkspaceID uint          `gorm:"not null;uniqueIndex:idx_workspace_member" json:"workspace_id"`
	Role        WorkspaceRole `gorm:"not null;default:'MEMBER'" json:"role"`

	User User `json:"user,omitempty"`
}
