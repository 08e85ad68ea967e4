package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"issuehub/authz"
	controller "issuehub/controllers"
	"issuehub/middleware"
	"issuehub/utils"
)

// SetupRoutes wires every controller onto the app. The DB handle and the
// logger are injected here and flow into every controller constructor.
func SetupRoutes(app *fiber.App, db *gorm.DB, mailer *utils.Mailer, logger *logrus.Logger) {
	az := authz.New(db)

	authController := controller.NewAuthController(db, logger)
	workspaceController := controller.NewWorkspaceController(db, az, logger)
	memberController := controller.NewMemberController(db, az, mailer, logger)
	projectController := controller.NewProjectController(db, az, logger)
	issueController := controller.NewIssueController(db, az, logger)
	commentController := controller.NewCommentController(db, az, logger)

	// Public auth endpoints
	app.Post("/signup", authController.Signup)
	app.Post("/login", authController.Login)

	// Everything below requires a valid session
	protected := app.Group("", middleware.Protected(db))

	protected.Post("/logout", authController.Logout)
	protected.Get("/user", authController.Me)
	protected.Get("/user/search", authController.SearchUsers)

	protected.Post("/workspaces", workspaceController.Create)
	protected.Get("/workspaces", workspaceController.List)
	protected.Post("/workspace/join", workspaceController.Join)
	protected.Get("/workspaces/role", workspaceController.Role)
	protected.Post("/workspaces/:slug/invite-code", workspaceController.RegenerateInviteCode)

	protected.Get("/workspaces/:slug/members", memberController.List)
	protected.Post("/workspaces/:slug/members", memberController.Invite)
	protected.Patch("/workspaces/:slug/members/:userId", memberController.ChangeRole)
	protected.Delete("/workspaces/:slug/members/:userId", memberController.Remove)

	protected.Post("/projects", projectController.Create)
	protected.Get("/projects", projectController.List)

	protected.Post("/issues", issueController.Create)
	protected.Get("/issues", issueController.List)
	protected.Get("/issues/find", issueController.Find)
	protected.Patch("/issues/:id", issueController.UpdateStatus)
	protected.Delete("/issues/:id", issueController.Delete)

	protected.Post("/comments", commentController.Create)
	protected.Get("/comments", commentController.List)
	protected.Delete("/comments/:id", commentController.Delete)

	logger.Info("routes initialized")
}
