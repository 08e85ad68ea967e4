package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"issuehub/authz"
	"issuehub/middleware"
	"issuehub/models"
	"issuehub/utils"
)

type ProjectController struct {
	DB     *gorm.DB
	Authz  *authz.Service
	Logger *logrus.Logger
}

func NewProjectController(db *gorm.DB, az *authz.Service, logger *logrus.Logger) *ProjectController {
	return &ProjectController{
		DB:     db,
		Authz:  az,
		Logger: logger,
	}
}

type CreateProjectRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Slug        string `json:"slug" validate:"required,max=50"`
	Description string `json:"description" validate:"omitempty,max=500"`
	WorkspaceID uint   `json:"workspace_id" validate:"required"`
}

// Create adds a project to a workspace. Any member may create projects.
// Slugs are unique within the workspace.
func (pc *ProjectController) Create(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var req CreateProjectRequest
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

	var workspace models.Workspace
	if err := pc.DB.First(&workspace, req.WorkspaceID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Workspace not found", nil)
	}

	if _, err := pc.Authz.RequireMember(user.ID, workspace.ID); err != nil {
		if errors.Is(err, authz.ErrNotMember) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Not a workspace member", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}

	project := models.Project{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		WorkspaceID: workspace.ID,
	}

	if err := pc.DB.Create(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.ErrorResponse(c, fiber.StatusConflict,
				"Project slug is already taken in this workspace", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create project", err)
	}

	pc.Logger.WithFields(logrus.Fields{
		"project_id":   project.ID,
		"workspace_id": workspace.ID,
		"slug":         project.Slug,
	}).Info("project created")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"project": project})
}

// List returns the workspace's projects, newest first. Member only.
func (pc *ProjectController) List(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	slug := c.Query("workspaceSlug")
	if slug == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "workspaceSlug is required", nil)
	}

	var workspace models.Workspace
	if err := pc.DB.Where("slug = ?", slug).First(&workspace).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Workspace not found", nil)
	}

	if _, err := pc.Authz.RequireMember(user.ID, workspace.ID); err != nil {
		if errors.Is(err, authz.ErrNotMember) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Not a workspace member", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}

	var projects []models.Project
	err := pc.DB.Where("workspace_id = ?", workspace.ID).
		Order("created_at desc").
		Find(&projects).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list projects", err)
	}

	return c.JSON(fiber.Map{"projects": projects})
}
