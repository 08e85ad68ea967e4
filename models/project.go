package models

// Project groups issues within a workspace. Slug is unique per workspace.
type Project struct {
	Base

	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"not null;uniqueIndex:idx_project_workspace_slug" json:"slug"`
	Description string `json:"description"`
	WorkspaceID uint   `gorm:"not null;uniqueIndex:idx_project_workspace_slug" json:"workspace_id"`

	// IssueCounter backs sequential issue numbering. It is only ever
	// touched inside the issue-creation transaction.
	IssueCounter uint `gorm:"not null;default:0" json:"-"`
}
