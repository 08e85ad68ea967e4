package controller_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"issuehub/config"
	"issuehub/models"
	"issuehub/routes"
	"issuehub/utils"
)

const testPassword = "password123!"

// setupApp builds a full application instance backed by a throwaway
// sqlite database. The busy timeout matters for the concurrent issue
// creation test, where several writers contend for the same file.
func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	utils.SetJWTSecret("test-secret")

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app := fiber.New()
	routes.SetupRoutes(app, db, utils.NewMailer(config.SMTPConfig{}), logger)

	return app, db
}

// createUser inserts a user directly and returns it with a session token.
func createUser(t *testing.T, db *gorm.DB, email, username string) (*models.User, string) {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Email:        email,
		Username:     username,
		PasswordHash: string(hashed),
	}
	require.NoError(t, db.Create(&user).Error)

	token, err := utils.GenerateToken(&user)
	require.NoError(t, err)

	return &user, token
}

// doJSON performs a request against the app. An empty token leaves the
// request unauthenticated.
func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Cookie", "token="+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// createWorkspace creates a workspace through the API and returns its
// body fields (the creator becomes ADMIN).
func createWorkspace(t *testing.T, app *fiber.App, token, name, slug string) map[string]interface{} {
	t.Helper()

	resp := doJSON(t, app, fiber.MethodPost, "/workspaces", token, fiber.Map{
		"name": name,
		"slug": slug,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	return body["workspace"].(map[string]interface{})
}

// createProject creates a project through the API.
func createProject(t *testing.T, app *fiber.App, token string, workspaceID uint, name, slug string) map[string]interface{} {
	t.Helper()

	resp := doJSON(t, app, fiber.MethodPost, "/projects", token, fiber.Map{
		"name":         name,
		"slug":         slug,
		"workspace_id": workspaceID,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	return body["project"].(map[string]interface{})
}

// createIssue creates an issue through the API.
func createIssue(t *testing.T, app *fiber.App, token string, projectID uint, title string) map[string]interface{} {
	t.Helper()

	resp := doJSON(t, app, fiber.MethodPost, "/issues", token, fiber.Map{
		"title":      title,
		"project_id": projectID,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	return body["issue"].(map[string]interface{})
}

func asUint(v interface{}) uint {
	return uint(v.(float64))
}

// addMember creates a membership row directly.
func addMember(t *testing.T, db *gorm.DB, userID, workspaceID uint, role models.WorkspaceRole) {
	t.Helper()

	member := models.WorkspaceMember{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Role:        role,
	}
	require.NoError(t, db.Create(&member).Error)
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s@example.com", prefix)
}
