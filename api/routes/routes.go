package routes

import (
	"vividly/api/handler"
	"vividly/api/middleware"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	Echo           *echo.Echo
	System         *handler.SystemHandler
	Auth           *handler.AuthHandler
	OAuth          *handler.OAuthHandler
	Users          *handler.UserHandler
	Projects       *handler.ProjectHandler
	Codegen        *handler.CodegenHandler
	AuthMiddleware middleware.AuthMiddleware
}

func (r *Router) RegisterRoutes() {
	e := r.Echo
	requireAuth := r.AuthMiddleware.RequireAuth

	e.GET("/", r.System.Root)
	e.GET("/health", r.System.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/preview/:id", r.Projects.SharedPreview)

	auth := e.Group("/api/auth")
	auth.POST("/register", r.Auth.Register)
	auth.POST("/login", r.Auth.Login)
	auth.POST("/login/2fa", r.Auth.LoginWithMFA)
	auth.POST("/refresh", r.Auth.Refresh)
	auth.POST("/logout", r.Auth.Logout, requireAuth)
	auth.POST("/revoke-all-sessions", r.Auth.RevokeAllSessions, requireAuth)
	auth.GET("/me", r.Auth.Me, requireAuth)
	auth.GET("/sessions", r.Auth.Sessions, requireAuth)
	auth.POST("/verify-email", r.Auth.VerifyEmail)
	auth.POST("/verify-email/resend", r.Auth.ResendVerification, requireAuth)
	auth.POST("/password/forgot", r.Auth.PasswordForgot)
	auth.POST("/password/reset", r.Auth.PasswordReset)
	auth.POST("/2fa/enable", r.Auth.EnableMFA, requireAuth)
	auth.POST("/2fa/verify", r.Auth.VerifyMFA, requireAuth)
	auth.POST("/2fa/disable", r.Auth.DisableMFA, requireAuth)

	if r.OAuth != nil {
		auth.GET("/oauth/providers", r.OAuth.Providers)
		auth.GET("/oauth/:provider/authorize", r.OAuth.Authorize)
		auth.GET("/oauth/:provider/callback", r.OAuth.Callback)
	}

	users := e.Group("/api/users", requireAuth)
	users.GET("/me", r.Users.Me)
	users.PUT("/me", r.Users.UpdateMe)
	users.POST("/me/change-password", r.Users.ChangePassword)
	users.POST("/me/deactivate", r.Users.Deactivate)
	users.POST("/me/delete", r.Users.DeleteAccount)
	users.GET("/me/activity", r.Users.Activity)
	users.GET("/me/preferences", r.Users.Preferences)
	users.PUT("/me/preferences", r.Users.UpdatePreferences)
	users.GET("", r.Users.List, middleware.RequireAdmin)
	users.GET("/search/query", r.Users.Search, middleware.RequireAdmin)
	users.GET("/stats/overview", r.Users.Stats, middleware.RequireAdmin)
	users.POST("/:id/activate", r.Users.Activate, middleware.RequireAdmin)
	users.POST("/:id/deactivate", r.Users.AdminDeactivate, middleware.RequireAdmin)
	users.POST("/:id/delete", r.Users.AdminDelete, middleware.RequireAdmin)
	users.GET("/:id", r.Users.Get)
	users.PUT("/:id", r.Users.Update)

	projects := e.Group("/api/projects", requireAuth)
	projects.POST("", r.Projects.Create)
	projects.GET("", r.Projects.List)
	projects.GET("/stats/overview", r.Projects.Stats)
	projects.GET("/search/query", r.Projects.Search)
	projects.GET("/:id", r.Projects.Get)
	projects.PUT("/:id", r.Projects.Update)
	projects.DELETE("/:id", r.Projects.Delete)
	projects.POST("/:id/generate-code", r.Projects.GenerateCode)
	projects.POST("/:id/publish", r.Projects.Publish)
	projects.POST("/:id/archive", r.Projects.Archive)
	projects.POST("/:id/duplicate", r.Projects.Duplicate)
	projects.POST("/:id/export", r.Projects.Export)
	projects.GET("/:id/preview", r.Projects.Preview)

	codegen := e.Group("/api/codegen", requireAuth)
	codegen.POST("/html", r.Codegen.HTML)
	codegen.POST("/react", r.Codegen.React)
	codegen.POST("/css", r.Codegen.CSS)
	codegen.POST("/project-structure", r.Codegen.ProjectStructure)
	codegen.POST("/optimize", r.Codegen.Optimize)
	codegen.POST("/project/:id/generate", r.Codegen.ProjectGenerate)
}
