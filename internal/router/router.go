// Package router wires the HTTP routes to their handlers and route
// groups to their middleware.
package router

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/moviestream/backend/internal/handler"
	"github.com/moviestream/backend/internal/middleware"
	"github.com/moviestream/backend/internal/model"
	"github.com/moviestream/backend/internal/ws"
)

// Handlers collects every handler the router registers.
type Handlers struct {
	Auth      *handler.AuthHandler
	Movies    *handler.MovieHandler
	Directors *handler.DirectorHandler
	Genres    *handler.GenreHandler
	Users     *handler.UserHandler
	Chat      *handler.ChatHandler
	Common    *handler.CommonHandler
	Gateway   *ws.Gateway
}

// Register wires all routes. Three tiers: public (health, auth,
// anonymous browse), authenticated (/v1 with a bearer token), and
// admin-only write paths.
func Register(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
	e.GET("/health", h.Common.Health)

	// Auth endpoints are rate limited per client ip; everything else
	// rides on the token.
	authGroup := e.Group("/v1/auth", middleware.RateLimit(rdb, 20, time.Minute))
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.POST("/logout", h.Auth.Logout)

	// Browse endpoints serve anonymous callers too; a valid bearer
	// token adds the per-user like overlay on listings.
	browse := e.Group("/v1", middleware.OptionalJWTAuth(jwtSecret))
	browse.GET("/movies", h.Movies.List)
	browse.GET("/movies/recent", h.Movies.Recent)
	browse.GET("/movies/:id", h.Movies.Get)
	browse.GET("/directors", h.Directors.List)
	browse.GET("/directors/:id", h.Directors.Get)
	browse.GET("/genres", h.Genres.List)
	browse.GET("/genres/:id", h.Genres.Get)

	// Authenticated endpoints.
	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	auth.GET("/me", h.Auth.Me)
	// Logout without a body revokes every session of the bearer.
	auth.POST("/logout", h.Auth.Logout)
	auth.POST("/movies/:id/like", h.Movies.Like)
	auth.POST("/movies/:id/dislike", h.Movies.Dislike)
	auth.GET("/chat/rooms", h.Chat.Rooms)
	auth.GET("/chat/rooms/:id/messages", h.Chat.Messages)
	auth.GET("/users/:id", h.Users.Get)
	auth.PATCH("/users/:id", h.Users.Update)

	// The websocket gateway authenticates inside the upgrade handshake
	// (query token or bearer header), so it sits outside JWTAuth.
	e.GET("/v1/chat/ws", h.Gateway.Handle)

	// Admin-only management endpoints.
	admin := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))
	admin.POST("/movies", h.Movies.Create)
	admin.PUT("/movies/:id", h.Movies.Update)
	admin.DELETE("/movies/:id", h.Movies.Delete)
	admin.POST("/directors", h.Directors.Create)
	admin.PUT("/directors/:id", h.Directors.Update)
	admin.DELETE("/directors/:id", h.Directors.Delete)
	admin.POST("/genres", h.Genres.Create)
	admin.PUT("/genres/:id", h.Genres.Update)
	admin.DELETE("/genres/:id", h.Genres.Delete)
	admin.GET("/users", h.Users.List)
	admin.DELETE("/users/:id", h.Users.Delete)
	admin.POST("/common/video", h.Common.UploadVideo)
}
