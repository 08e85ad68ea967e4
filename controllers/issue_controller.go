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

type IssueController struct {
	DB     *gorm.DB
	Authz  *authz.Service
	Logger *logrus.Logger
}

func NewIssueController(db *gorm.DB, az *authz.Service, logger *logrus.Logger) *IssueController {
	return &IssueController{
		DB:     db,
		Authz:  az,
		Logger: logger,
	}
}

type CreateIssueRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	ProjectID   uint   `json:"project_id" validate:"required"`
}

// Create files an issue with the next sequential number for its project.
//
// The number comes from the project's counter column, incremented and
// read back inside the same transaction as the insert. The UPDATE's row
// lock is held until commit, so two concurrent creators for the same
// project serialize instead of both reading the same max; a plain
// SELECT MAX(number)+1 here would race.
func (ic *IssueController) Create(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var req CreateIssueRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var project models.Project
	if err := ic.DB.First(&project, req.ProjectID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
	}

	if _, err := ic.Authz.RequireMember(user.ID, project.WorkspaceID); err != nil {
		if errors.Is(err, authz.ErrNotMember) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Not a workspace member", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}

	issue := models.Issue{
		Title:       req.Title,
		Description: req.Description,
		ProjectID:   project.ID,
		AuthorID:    user.ID,
		Status:      models.StatusTodo,
	}

	err := ic.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Project{}).
			Where("id = ?", project.ID).
			UpdateColumn("issue_counter", gorm.Expr("issue_counter + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var counted models.Project
		if err := tx.First(&counted, project.ID).Error; err != nil {
			return err
		}

		issue.Number = counted.IssueCounter
		return tx.Create(&issue).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create issue", err)
	}

	ic.Logger.WithFields(logrus.Fields{
		"issue_id":   issue.ID,
		"project_id": project.ID,
		"number":     issue.Number,
	}).Info("issue created")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"issue": issue})
}

// List returns a project's issues, newest first. Member only.
func (ic *IssueController) List(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	project, errResp := ic.resolveProject(c)
	if errResp != nil {
		return errResp(c)
	}

	if _, err := ic.Authz.RequireMember(user.ID, project.WorkspaceID); err != nil {
		if errors.Is(err, authz.ErrNotMember) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Not a workspace member", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}

	var issues []models.Issue
	err := ic.DB.Preload("Author").
		Where("project_id = ?", project.ID).
		Order("created_at desc").
		Find(&issues).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list issues", err)
	}

	return c.JSON(fiber.Map{"issues": issues})
}

// Find looks an issue up by workspace slug, project slug and number.
func (ic *IssueController) Find(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	number := utils.ParseUint(c.Query("number"))
	if number == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest,
			"workspaceSlug, projectSlug and number are required", nil)
	}

	project, errResp := ic.resolveProject(c)
	if errResp != nil {
		return errResp(c)
	}

	if _, err := ic.Authz.RequireMember(user.ID, project.WorkspaceID); err != nil {
		if errors.Is(err, authz.ErrNotMember) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Not a workspace member", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}

	var issue models.Issue
	err := ic.DB.Preload("Author").
		Where("project_id = ? AND number = ?", project.ID, number).
		First(&issue).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Issue not found", nil)
	}

	return c.JSON(fiber.Map{"issue": issue})
}

type UpdateIssueStatusRequest struct {
	Status models.IssueStatus `json:"status"`
}

// UpdateStatus sets an issue's status. Any member may set any of the
// four values; the state machine is deliberately free-form.
func (ic *IssueController) UpdateStatus(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var req UpdateIssueStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if !models.ValidStatus(req.Status) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid status value", nil)
	}

	var issue models.Issue
	if err := ic.DB.First(&issue, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Issue not found", nil)
	}

	var project models.Project
	if err := ic.DB.First(&project, issue.ProjectID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve project", err)
	}

	if _, err := ic.Authz.RequireMember(user.ID, project.WorkspaceID); err != nil {
		if errors.Is(err, authz.ErrNotMember) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Not a workspace member", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}

	if err := ic.DB.Model(&issue).Update("status", req.Status).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update status", err)
	}

	if err := ic.DB.Preload("Author").First(&issue, issue.ID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to reload issue", err)
	}

	return c.JSON(fiber.Map{"issue": issue})
}

// Delete removes an issue and its comments. Author or workspace ADMIN.
func (ic *IssueController) Delete(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var issue models.Issue
	if err := ic.DB.First(&issue, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Issue not found", nil)
	}

	var project models.Project
	if err := ic.DB.First(&project, issue.ProjectID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve project", err)
	}

	role, err := ic.Authz.RoleOf(user.ID, project.WorkspaceID)
	if err != nil {
		if errors.Is(err, authz.ErrNotMember) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Not a workspace member", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}

	if !ic.Authz.CanDelete(role, issue.AuthorID, user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden,
			"Only the author or a workspace admin can delete this issue", nil)
	}

	err = ic.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("issue_id = ?", issue.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&issue).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete issue", err)
	}

	ic.Logger.WithFields(logrus.Fields{
		"issue_id":   issue.ID,
		"deleted_by": user.ID,
	}).Info("issue deleted")

	return c.JSON(fiber.Map{"message": "Issue deleted"})
}

// resolveProject reads workspaceSlug and projectSlug query params and
// returns the project, or an error responder for the 400/404 cases.
func (ic *IssueController) resolveProject(c *fiber.Ctx) (*models.Project, func(*fiber.Ctx) error) {
	workspaceSlug := c.Query("workspaceSlug")
	projectSlug := c.Query("projectSlug")
	if workspaceSlug == "" || projectSlug == "" {
		return nil, func(c *fiber.Ctx) error {
			return utils.ErrorResponse(c, fiber.StatusBadRequest,
				"workspaceSlug and projectSlug are required", nil)
		}
	}

	var workspace models.Workspace
	if err := ic.DB.Where("slug = ?", workspaceSlug).First(&workspace).Error; err != nil {
		return nil, func(c *fiber.Ctx) error {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Workspace not found", nil)
		}
	}

	var project models.Project
	err := ic.DB.Where("workspace_id = ? AND slug = ?", workspace.ID, projectSlug).
		First(&project).Error
	if err != nil {
		return nil, func(c *fiber.Ctx) error {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Project not found", nil)
		}
	}

	return &project, nil
}
