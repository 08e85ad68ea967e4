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

type CommentController struct {
	DB     *gorm.DB
	Authz  *authz.Service
	Logger *logrus.Logger
}

func NewCommentController(db *gorm.DB, az *authz.Service, logger *logrus.Logger) *CommentController {
	return &CommentController{
		DB:     db,
		Authz:  az,
		Logger: logger,
	}
}

type CreateCommentRequest struct {
	IssueID uint   `json:"issue_id" validate:"required"`
	Content string `json:"content" validate:"required,max=5000"`
}

// Create attaches a comment to an issue. Member only.
func (cc *CommentController) Create(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var req CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	workspaceID, errResp := cc.workspaceForIssue(req.IssueID)
	if errResp != nil {
		return errResp(c)
	}

	if _, err := cc.Authz.RequireMember(user.ID, workspaceID); err != nil {
		if errors.Is(err, authz.ErrNotMember) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Not a workspace member", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}

	comment := models.Comment{
		IssueID:  req.IssueID,
		Content:  req.Content,
		AuthorID: user.ID,
	}

	if err := cc.DB.Create(&comment).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create comment", err)
	}

	if err := cc.DB.Preload("Author").First(&comment, comment.ID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to reload comment", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"comment": comment})
}

// List returns an issue's comments with authors joined, newest first.
// Member only.
func (cc *CommentController) List(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	issueID := utils.ParseUint(c.Query("issueId"))
	if issueID == 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "issueId is required", nil)
	}

	workspaceID, errResp := cc.workspaceForIssue(issueID)
	if errResp != nil {
		return errResp(c)
	}

	if _, err := cc.Authz.RequireMember(user.ID, workspaceID); err != nil {
		if errors.Is(err, authz.ErrNotMember) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Not a workspace member", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}

	var comments []models.Comment
	err := cc.DB.Preload("Author").
		Where("issue_id = ?", issueID).
		Order("created_at desc").
		Find(&comments).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list comments", err)
	}

	return c.JSON(fiber.Map{"comments": comments})
}

// Delete removes a comment. Author or workspace ADMIN.
func (cc *CommentController) Delete(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var comment models.Comment
	if err := cc.DB.First(&comment, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Comment not found", nil)
	}

	workspaceID, errResp := cc.workspaceForIssue(comment.IssueID)
	if errResp != nil {
		return errResp(c)
	}

	role, err := cc.Authz.RoleOf(user.ID, workspaceID)
	if err != nil {
		if errors.Is(err, authz.ErrNotMember) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Not a workspace member", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check membership", err)
	}

	if !cc.Authz.CanDelete(role, comment.AuthorID, user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden,
			"Only the author or a workspace admin can delete this comment", nil)
	}

	if err := cc.DB.Delete(&comment).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete comment", err)
	}

	cc.Logger.WithFields(logrus.Fields{
		"comment_id": comment.ID,
		"deleted_by": user.ID,
	}).Info("comment deleted")

	return c.JSON(fiber.Map{"message": "Comment deleted"})
}

// workspaceForIssue walks issue -> project -> workspace.
func (cc *CommentController) workspaceForIssue(issueID uint) (uint, func(*fiber.Ctx) error) {
	var issue models.Issue
	if err := cc.DB.First(&issue, issueID).Error; err != nil {
		return 0, func(c *fiber.Ctx) error {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Issue not found", nil)
		}
	}

	var project models.Project
	if err := cc.DB.First(&project, issue.ProjectID).Error; err != nil {
		return 0, func(c *fiber.Ctx) error {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to resolve project", err)
		}
	}

	return project.WorkspaceID, nil
}
