package controller

import (
	"errors"
	"regexp"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"issuehub/authz"
	"issuehub/middleware"
	"issuehub/models"
	"issuehub/utils"
)

// Workspace slugs are lowercase ASCII letters and digits only.
var slugPattern = regexp.MustCompile(`^[a-z0-9]+$`)

type WorkspaceController struct {
	DB     *gorm.DB
	Authz  *authz.Service
	Logger *logrus.Logger
}

func NewWorkspaceController(db *gorm.DB, az *authz.Service, logger *logrus.Logger) *WorkspaceController {
	return &WorkspaceController{
		DB:     db,
		Authz:  az,
		Logger: logger,
	}
}

type CreateWorkspaceRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Slug        string `json:"slug" validate:"required,max=50"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

// Create makes a workspace and its first ADMIN membership in one
// transaction; a workspace without an admin must never exist.
func (wc *WorkspaceController) Create(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var req CreateWorkspaceRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	if !slugPattern.MatchString(req.Slug) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest,
			"Slug may only contain lowercase letters and digits", nil)
	}

	code, err := utils.GenerateInviteCode()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate invite code", err)
	}

	workspace := models.Workspace{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		InviteCode:  code,
	}

	err = wc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&workspace).Error; err != nil {
			return err
		}
		member := models.WorkspaceMember{
			UserID:      user.ID,
			WorkspaceID: workspace.ID,
			Role:        models.RoleAdmin,
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.ErrorResponse(c, fiber.StatusConflict, "Workspace slug is already taken", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create workspace", err)
	}

	wc.Logger.WithFields(logrus.Fields{
		"workspace_id": workspace.ID,
		"slug":         workspace.Slug,
		"creator_id":   user.ID,
	}).Info("workspace created")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"workspace": workspace})
}

type workspaceWithRole struct {
	ID          uint                 `json:"id"`
	Name        string               `json:"name"`
	Slug        string               `json:"slug"`
	Description string               `json:"description"`
	InviteCode  string               `json:"invite_code"`
	CreatedAt   time.Time            `json:"created_at"`
	Role        models.WorkspaceRole `json:"role"`
}

// List returns every workspace the caller belongs to, annotated with
// the caller's role in each.
func (wc *WorkspaceController) List(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var members []models.WorkspaceMember
	if err := wc.DB.Where("user_id = ?", user.ID).Find(&members).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list workspaces", err)
	}

	result := make([]workspaceWithRole, 0, len(members))
	for _, m := range members {
		var ws models.Workspace
		if err := wc.DB.First(&ws, m.WorkspaceID).Error; err != nil {
			continue
		}
		result = append(result, workspaceWithRole{
			ID:          ws.ID,
			Name:        ws.Name,
			Slug:        ws.Slug,
			Description: ws.Description,
			InviteCode:  ws.InviteCode,
			CreatedAt:   ws.CreatedAt,
			Role:        m.Role,
		})
	}

	return c.JSON(fiber.Map{"workspaces": result})
}

type JoinWorkspaceRequest struct {
	Code string `json:"code" validate:"required"`
}

// Join adds the caller to the workspace behind an invite code as MEMBER.
// Joining a workspace the caller already belongs to is not an error.
func (wc *WorkspaceController) Join(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var req JoinWorkspaceRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if req.Code == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invite code is required", nil)
	}

	var workspace models.Workspace
	if err := wc.DB.Where("invite_code = ?", req.Code).First(&workspace).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Invite code not found", nil)
	}

	if _, err := wc.Authz.RoleOf(user.ID, workspace.ID); err == nil {
		return c.JSON(fiber.Map{
			"workspace":      workspace,
			"already_member": true,
		})
	} else if !errors.Is(err, authz.ErrNotMember) {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}

	member := models.WorkspaceMember{
		UserID:      user.ID,
		WorkspaceID: workspace.ID,
		Role:        models.RoleMember,
	}
	if err := wc.DB.Create(&member).Error; err != nil {
		// Lost a race against a concurrent join by the same user
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.JSON(fiber.Map{
				"workspace":      workspace,
				"already_member": true,
			})
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to join workspace", err)
	}

	wc.Logger.WithFields(logrus.Fields{
		"workspace_id": workspace.ID,
		"user_id":      user.ID,
	}).Info("user joined workspace via invite code")

	return c.JSON(fiber.Map{
		"workspace":      workspace,
		"already_member": false,
	})
}

// Role returns the caller's role in the workspace named by slug.
func (wc *WorkspaceController) Role(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	slug := c.Query("workspaceSlug")
	if slug == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "workspaceSlug is required", nil)
	}

	var workspace models.Workspace
	if err := wc.DB.Where("slug = ?", slug).First(&workspace).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Workspace not found", nil)
	}

	role, err := wc.Authz.RoleOf(user.ID, workspace.ID)
	if err != nil {
		if errors.Is(err, authz.ErrNotMember) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Not a workspace member", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to look up role", err)
	}

	return c.JSON(fiber.Map{"role": role})
}

// RegenerateInviteCode replaces the workspace invite code. ADMIN only;
// the previous code stops working immediately.
func (wc *WorkspaceController) RegenerateInviteCode(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	slug := c.Params("slug")

	var workspace models.Workspace
	if err := wc.DB.Where("slug = ?", slug).First(&workspace).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Workspace not found", nil)
	}

	if err := wc.Authz.RequireAdmin(user.ID, workspace.ID); err != nil {
		if errors.Is(err, authz.ErrNotMember) || errors.Is(err, authz.ErrNotAdmin) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Admin role required", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check role", err)
	}

	code, err := utils.GenerateInviteCode()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate invite code", err)
	}

	if err := wc.DB.Model(&workspace).Update("invite_code", code).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update invite code", err)
	}

	return c.JSON(fiber.Map{"invite_code": code})
}
