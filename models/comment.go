package models

// Comment is attached to an issue. Author is fixed at creation.
type Comment struct {
	Base

	Content  string `gorm:"not null" json:"content"`
	IssueID  uint   `gorm:"not null;index" json:"issue_id"`
	AuthorID uint   `gorm:"not null" json:"author_id"`

	Author User `json:"author,omitempty"`
}
