package router

import (
	"time"

	"github.com/flowdeck-dev/flowdeck/config"
	"github.com/flowdeck-dev/flowdeck/internal/authz"
	"github.com/flowdeck-dev/flowdeck/internal/handlers"
	"github.com/flowdeck-dev/flowdeck/internal/middleware"
	"github.com/flowdeck-dev/flowdeck/internal/services"
	"github.com/flowdeck-dev/flowdeck/internal/types"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func NewRouter(db *gorm.DB, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authorizer := authz.NewAuthorizer(db)
	projectService := services.NewProjectService(db, cfg.Datastore.Root)

	authHandler := handlers.NewAuthHandler(db)
	projectHandler := handlers.NewProjectHandler(db, projectService, authorizer)
	jobHandler := handlers.NewJobHandler(db, authorizer)

	r.GET("/health", handlers.HealthCheck)

	auth := r.Group("/auth")
	{
		auth.POST("/register", authHandler.CreateUser)
		auth.POST("/login", authHandler.LoginUser)
		auth.GET("/me", middleware.Auth(db), authHandler.Me)
		auth.POST("/logout", authHandler.LogoutUser)
	}

	// View and form routes resolve the user when a token is present but stay
	// reachable anonymously; the handlers run their own authorize checks.
	views := r.Group("/views", middleware.OptionalAuth(db))
	{
		views.GET("/projects", projectHandler.ListProjects)
		views.GET("/projects/:project_id/jobs", jobHandler.ProjectJobs)
	}

	projects := r.Group("/projects", middleware.OptionalAuth(db))
	{
		projects.GET("/add", projectHandler.AddProjectForm)
		projects.POST("/add", projectHandler.AddProject)
		projects.GET("/:project_id/edit", projectHandler.EditProjectForm)
		projects.POST("/:project_id/edit", projectHandler.EditProject)
		projects.GET("/:project_id/manage", projectHandler.ManageProjectForm)
		projects.POST("/:project_id/manage", projectHandler.ManageProject)
	}

	return r
}
