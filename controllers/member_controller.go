package controller

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"issuehub/authz"
	"issuehub/middleware"
	"issuehub/models"
	"issuehub/utils"
)

type MemberController struct {
	DB     *gorm.DB
	Authz  *authz.Service
	Mailer *utils.Mailer
	Logger *logrus.Logger
}

func NewMemberController(db *gorm.DB, az *authz.Service, mailer *utils.Mailer, logger *logrus.Logger) *MemberController {
	return &MemberController{
		DB:     db,
		Authz:  az,
		Mailer: mailer,
		Logger: logger,
	}
}

type InviteEntry struct {
	Email string               `json:"email"`
	Role  models.WorkspaceRole `json:"role"`
}

type inviteFailure struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// List returns the workspace's members with their user records joined.
// Visible to any member.
func (mc *MemberController) List(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	workspace, err := mc.findWorkspace(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Workspace not found", nil)
	}

	if _, err := mc.Authz.RequireMember(user.ID, workspace.ID); err != nil {
		if errors.Is(err, authz.ErrNotMember) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Not a workspace member", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}

	var members []models.WorkspaceMember
	err = mc.DB.Preload("User").
		Where("workspace_id = ?", workspace.ID).
		Order("created_at asc").
		Find(&members).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list members", err)
	}

	return c.JSON(fiber.Map{"members": members})
}

// Invite adds users to the workspace by email. The body is either a
// single {email, role} object (plain 201/error semantics) or an array
// of them, in which case every entry is processed independently and the
// response is a 207 carrying both the invited and the failed entries.
// ADMIN only.
func (mc *MemberController) Invite(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	workspace, err := mc.findWorkspace(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Workspace not found", nil)
	}

	if err := mc.Authz.RequireAdmin(user.ID, workspace.ID); err != nil {
		if errors.Is(err, authz.ErrNotMember) || errors.Is(err, authz.ErrNotAdmin) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Admin role required", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check role", err)
	}

	body := strings.TrimSpace(string(c.Body()))
	if strings.HasPrefix(body, "[") {
		var entries []InviteEntry
		if err := json.Unmarshal([]byte(body), &entries); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
		}
		if len(entries) == 0 {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "No invite entries given", nil)
		}

		invited := make([]string, 0, len(entries))
		failures := make([]inviteFailure, 0)
		for _, entry := range entries {
			if err := mc.invite(workspace, user, entry); err != nil {
				failures = append(failures, inviteFailure{Email: entry.Email, Message: err.Error()})
				continue
			}
			invited = append(invited, entry.Email)
		}

		return c.Status(fiber.StatusMultiStatus).JSON(fiber.Map{
			"invited": invited,
			"errors":  failures,
		})
	}

	var entry InviteEntry
	if err := json.Unmarshal([]byte(body), &entry); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := mc.invite(workspace, user, entry); err != nil {
		switch {
		case errors.Is(err, errUserNotFound):
			return utils.ErrorResponse(c, fiber.StatusNotFound, err.Error(), nil)
		case errors.Is(err, errAlreadyMember):
			return utils.ErrorResponse(c, fiber.StatusConflict, err.Error(), nil)
		case errors.Is(err, errBadInviteEntry):
			return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
		default:
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to invite member", err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"invited": entry.Email})
}

var (
	errUserNotFound   = errors.New("user not found")
	errAlreadyMember  = errors.New("already a workspace member")
	errBadInviteEntry = errors.New("invalid email or role")
)

// invite resolves one entry and creates the membership. Used by both the
// single and the bulk path; bulk callers collect errors per entry.
func (mc *MemberController) invite(workspace *models.Workspace, inviter *models.User, entry InviteEntry) error {
	if entry.Email == "" || !models.ValidRole(entry.Role) {
		return errBadInviteEntry
	}
	if err := checkmail.ValidateFormat(entry.Email); err != nil {
		return errBadInviteEntry
	}

	var target models.User
	if err := mc.DB.Where("email = ?", strings.ToLower(entry.Email)).First(&target).Error; err != nil {
		return errUserNotFound
	}

	if _, err := mc.Authz.RoleOf(target.ID, workspace.ID); err == nil {
		return errAlreadyMember
	} else if !errors.Is(err, authz.ErrNotMember) {
		return err
	}

	member := models.WorkspaceMember{
		UserID:      target.ID,
		WorkspaceID: workspace.ID,
		Role:        entry.Role,
	}
	if err := mc.DB.Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errAlreadyMember
		}
		return err
	}

	// Notification is best-effort; the membership already exists.
	if err := mc.Mailer.SendWorkspaceInvite(target.Email, workspace.Name, inviter.Username, string(entry.Role)); err != nil {
		mc.Logger.WithFields(logrus.Fields{
			"workspace_id": workspace.ID,
			"email":        target.Email,
		}).WithError(err).Warn("failed to send invite email")
	}

	mc.Logger.WithFields(logrus.Fields{
		"workspace_id": workspace.ID,
		"user_id":      target.ID,
		"role":         entry.Role,
	}).Info("member invited")

	return nil
}

type ChangeRoleRequest struct {
	Role models.WorkspaceRole `json:"role"`
}

// ChangeRole updates a member's role. ADMIN only; setting the role a
// member already has succeeds without effect.
func (mc *MemberController) ChangeRole(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	workspace, err := mc.findWorkspace(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Workspace not found", nil)
	}

	if err := mc.Authz.RequireAdmin(user.ID, workspace.ID); err != nil {
		if errors.Is(err, authz.ErrNotMember) || errors.Is(err, authz.ErrNotAdmin) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Admin role required", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check role", err)
	}

	var req ChangeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if !models.ValidRole(req.Role) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid role", nil)
	}

	targetID := utils.ParseUint(c.Params("userId"))

	result := mc.DB.Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspace.ID, targetID).
		Update("role", req.Role)
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update role", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User is not a member of this workspace", nil)
	}

	return c.JSON(fiber.Map{"message": "Role updated"})
}

// Remove deletes a membership. ADMIN only.
func (mc *MemberController) Remove(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	workspace, err := mc.findWorkspace(c)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Workspace not found", nil)
	}

	if err := mc.Authz.RequireAdmin(user.ID, workspace.ID); err != nil {
		if errors.Is(err, authz.ErrNotMember) || errors.Is(err, authz.ErrNotAdmin) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Admin role required", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check role", err)
	}

	targetID := utils.ParseUint(c.Params("userId"))

	result := mc.DB.
		Where("workspace_id = ? AND user_id = ?", workspace.ID, targetID).
		Delete(&models.WorkspaceMember{})
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to remove member", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User is not a member of this workspace", nil)
	}

	mc.Logger.WithFields(logrus.Fields{
		"workspace_id": workspace.ID,
		"user_id":      targetID,
	}).Info("member removed")

	return c.JSON(fiber.Map{"message": "Member removed"})
}

func (mc *MemberController) findWorkspace(c *fiber.Ctx) (*models.Workspace, error) {
	var workspace models.Workspace
	if err := mc.DB.Where("slug = ?", c.Params("slug")).First(&workspace).Error; err != nil {
		return nil, err
	}
	return &workspace, nil
}
