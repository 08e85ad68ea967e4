// Package authz is the single source of truth for workspace access
// decisions. Every scoped read, create, and delete in the API resolves
// the caller's role through this package instead of re-implementing the
// membership lookup per endpoint.
package authz

import (
	"errors"

	"gorm.io/gorm"

	"issuehub/models"
)

var (
	// ErrNotMember means the user holds no membership in the workspace.
	ErrNotMember = errors.New("not a workspace member")
	// ErrNotAdmin means the user is a member but lacks the ADMIN role.
	ErrNotAdmin = errors.New("admin role required")
)

type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RoleOf returns the user's role in the workspace, or ErrNotMember.
func (s *Service) RoleOf(userID, workspaceID uint) (models.WorkspaceRole, error) {
	var member models.WorkspaceMember
	err := s.db.Where("user_id = ? AND workspace_id = ?", userID, workspaceID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotMember
		}
		return "", err
	}
	return member.Role, nil
}

// RequireMember returns the caller's role, or ErrNotMember.
// Read and create access inside a workspace requires exactly this.
func (s *Service) RequireMember(userID, workspaceID uint) (models.WorkspaceRole, error) {
	return s.RoleOf(userID, workspaceID)
}

// RequireAdmin fails with ErrNotAdmin unless the user is an ADMIN of the
// workspace. Membership and role management go through this.
func (s *Service) RequireAdmin(userID, workspaceID uint) error {
	role, err := s.RoleOf(userID, workspaceID)
	if err != nil {
		return err
	}
	if role != models.RoleAdmin {
		return ErrNotAdmin
	}
	return nil
}

// CanDelete reports whether a member may delete a resource they can see:
// the resource's author always can, a workspace ADMIN always can.
func (s *Service) CanDelete(role models.WorkspaceRole, authorID, userID uint) bool {
	return authorID == userID || role == models.RoleAdmin
}
