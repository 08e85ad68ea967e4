package models

// IssueStatus is one of the four issue states. Any member may set any
// valid status; transitions are not restricted to a forward-only machine.
type IssueStatus string

const (
	StatusTodo       IssueStatus = "TODO"
	StatusInProgress IssueStatus = "IN_PROGRESS"
	StatusDone       IssueStatus = "DONE"
	StatusCancelled  IssueStatus = "CANCELLED"
)

// ValidStatus reports whether s is an assignable issue status.
func ValidStatus(s IssueStatus) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone, StatusCancelled:
		return true
	}
	return false
}

// Issue is a trackable unit of work. Number is sequential per project,
// assigned at creation and never reused.
type Issue struct {
	Base

	Number      uint        `gorm:"not null;uniqueIndex:idx_issue_project_number" json:"number"`
	ProjectID   uint        `gorm:"not null;uniqueIndex:idx_issue_project_number" json:"project_id"`
	Title       string      `gorm:"not null" json:"title"`
	Description string      `json:"description"`
	Status      IssueStatus `gorm:"not null;default:'TODO'" json:"status"`
	AuthorID    uint        `gorm:"not null" json:"author_id"`

	Author User `json:"author,omitempty"`
}
