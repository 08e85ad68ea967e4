package controller

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"issuehub/middleware"
	"issuehub/models"
	"issuehub/utils"
)

type AuthController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewAuthController(db *gorm.DB, logger *logrus.Logger) *AuthController {
	return &AuthController{
		DB:     db,
		Logger: logger,
	}
}

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=2,max=50"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Signup registers a new account.
func (ac *AuthController) Signup(c *fiber.Ctx) error {
	var req SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var existing models.User
	if err := ac.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Email already registered", nil)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to hash password", err)
	}

	user := models.User{
		Email:        strings.ToLower(req.Email),
		Username:     req.Username,
		PasswordHash: string(hashed),
	}

	if err := ac.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Email already registered", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create user", err)
	}

	ac.Logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("user registered")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
}

// Login verifies credentials and sets the session cookie.
//
// The "User not found" / "Incorrect password" distinction mirrors the
// historical behavior and is kept on purpose.
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var user models.User
	if err := ac.DB.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "User not found", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "Incorrect password", nil)
	}

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate token", err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(utils.TokenTTL),
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.JSON(fiber.Map{"user": user})
}

// Logout clears the session cookie.
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Me returns the authenticated user.
func (ac *AuthController) Me(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	return c.JSON(fiber.Map{"user": user})
}

type userSearchResult struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	IsMember bool   `json:"is_member"`
}

// SearchUsers finds accounts by email or username fragment, flagging
// which of them already belong to the given workspace. Powers the
// member invite dialog.
func (ac *AuthController) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("query")
	workspaceSlug := c.Query("workspaceSlug")
	if query == "" || workspaceSlug == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "query and workspaceSlug are required", nil)
	}

	var workspace models.Workspace
	if err := ac.DB.Where("slug = ?", workspaceSlug).First(&workspace).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Workspace not found", nil)
	}

	memberIDs := make(map[uint]bool)
	var members []models.WorkspaceMember
	if err := ac.DB.Where("workspace_id = ?", workspace.ID).Find(&members).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load members", err)
	}
	for _, m := range members {
		memberIDs[m.UserID] = true
	}

	pattern := "%" + strings.ToLower(query) + "%"
	var users []models.User
	err := ac.DB.
		Where("LOWER(email) LIKE ? OR LOWER(username) LIKE ?", pattern, pattern).
		Limit(10).
		Find(&users).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to search users", err)
	}

	results := make([]userSearchResult, 0, len(users))
	for _, u := range users {
		results = append(results, userSearchResult{
			ID:       u.ID,
			Email:    u.Email,
			Username: u.Username,
			IsMember: memberIDs[u.ID],
		})
	}

	return c.JSON(fiber.Map{"users": results})
}
