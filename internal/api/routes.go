// Package api contains the API routes for the Misbar API
package api

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/misbarapi/internal/api/handlers"
	"github.com/nsvirk/misbarapi/internal/api/middleware"
	"github.com/nsvirk/misbarapi/internal/config"
	"github.com/nsvirk/misbarapi/internal/models"
	"github.com/nsvirk/misbarapi/internal/oauth"
	"github.com/nsvirk/misbarapi/internal/repository"
	"github.com/nsvirk/misbarapi/internal/service"
	"github.com/nsvirk/misbarapi/internal/token"
	"github.com/nsvirk/misbarapi/pkg/utils/response"
	"gorm.io/gorm"
)

// Stores groups the persistence backends used by the services
type Stores struct {
	Users  service.UserStore
	Logins service.LoginLogStore
	Chats  service.ChatStore
}

// PostgresStores returns the gorm backed stores
func PostgresStores(db *gorm.DB) Stores {
	return Stores{
		Users:  repository.NewUserRepository(db),
		Logins: repository.NewLoginLogRepository(db),
		Chats:  repository.NewChatRepository(db),
	}
}

// Services holds everything the routes need
type Services struct {
	Tokens    *token.Manager
	Denylist  token.Denylist
	Auth      *service.AuthService
	Identity  *service.IdentityService
	Admin     *service.AdminService
	Chat      *service.ChatService
	Providers []handlers.IdentityProvider
}

// NewServices wires the services on top of the stores. OAuth providers are
// only registered when their client credentials are configured.
func NewServices(cfg *config.Config, stores Stores, denylist token.Denylist, audit service.AuditRecorder) *Services {
	if denylist == nil {
		denylist = token.NoopDenylist{}
	}
	tokens := token.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	svcs := &Services{
		Tokens:   tokens,
		Denylist: denylist,
		Auth:     service.NewAuthService(stores.Users, stores.Logins, tokens),
		Identity: service.NewIdentityService(stores.Users, stores.Logins, tokens, audit),
		Admin:    service.NewAdminService(stores.Users, stores.Logins, audit),
		Chat:     service.NewChatService(stores.Chats),
	}

	backend := strings.TrimRight(cfg.BackendURL, "/")
	if cfg.GoogleEnabled() {
		svcs.Providers = append(svcs.Providers, oauth.NewGoogleProvider(oauth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  backend + "/api/auth/google/callback",
			Timeout:      cfg.OAuthTimeout,
		}))
	}
	if cfg.MicrosoftEnabled() {
		svcs.Providers = append(svcs.Providers, oauth.NewMicrosoftProvider(oauth.MicrosoftConfig{
			ClientID:     cfg.MicrosoftClientID,
			ClientSecret: cfg.MicrosoftClientSecret,
			Tenant:       cfg.MicrosoftTenant,
			RedirectURL:  backend + "/api/auth/microsoft/callback",
			Timeout:      cfg.OAuthTimeout,
		}))
	}
	return svcs
}

// SetupRoutes configures the routes for the API
func SetupRoutes(e *echo.Echo, cfg *config.Config, svcs *Services) {

	// Create a group for all API routes
	api := e.Group("/api")

	// Index route
	api.GET("/", indexRoute(cfg))

	cookies := handlers.CookieConfig{Secure: cfg.CookieSecure, TTL: svcs.Tokens.TTL()}
	verifyToken := middleware.VerifyToken(svcs.Tokens, svcs.Denylist)

	// Auth routes (unprotected, except me)
	authHandler := handlers.NewAuthHandler(svcs.Auth, svcs.Tokens, svcs.Denylist, cookies)
	authGroup := api.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/me", authHandler.Me, verifyToken)

	// OAuth routes (unprotected)
	oauthHandler := handlers.NewOAuthHandler(svcs.Identity, cookies, cfg.FrontendURL, svcs.Providers...)
	authGroup.GET("/google", oauthHandler.Begin(models.CredentialGoogle))
	authGroup.GET("/google/callback", oauthHandler.Callback(models.CredentialGoogle))
	authGroup.GET("/microsoft", oauthHandler.Begin(models.CredentialMicrosoft))
	authGroup.GET("/microsoft/callback", oauthHandler.Callback(models.CredentialMicrosoft))
	authGroup.POST("/microsoft/token", oauthHandler.MicrosoftToken)

	// Admin routes (protected, admin only)
	adminHandler := handlers.NewAdminHandler(svcs.Admin)
	adminGroup := api.Group("/admin")
	adminGroup.Use(verifyToken, middleware.VerifyAdmin())
	adminGroup.GET("/users", adminHandler.ListUsers)
	adminGroup.PUT("/users/:id", adminHandler.UpdateUser)
	adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)
	adminGroup.GET("/login-logs", adminHandler.LoginLogs)

	// User routes (protected)
	userHandler := handlers.NewUserHandler(svcs.Auth)
	userGroup := api.Group("/user")
	userGroup.Use(verifyToken)
	userGroup.PUT("/profile", userHandler.UpdateProfile)

	// Chat routes (protected)
	chatHandler := handlers.NewChatHandler(svcs.Chat)
	chatGroup := api.Group("/chat")
	chatGroup.Use(verifyToken)
	chatGroup.GET("/sessions", chatHandler.ListSessions)
	chatGroup.POST("/sessions", chatHandler.CreateSession)
	chatGroup.PUT("/sessions/:sessionId", chatHandler.RenameSession)
	chatGroup.DELETE("/sessions/:sessionId", chatHandler.DeleteSession)
	chatGroup.GET("/sessions/:sessionId/messages", chatHandler.Messages)
	chatGroup.POST("/sessions/:sessionId/messages", chatHandler.AddMessage)

}

// indexRoute reports the app name and version
func indexRoute(cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		message := fmt.Sprintf("%s %s", cfg.APIName, cfg.APIVersion)
		return response.SuccessResponse(c, message, nil)
	}
}
