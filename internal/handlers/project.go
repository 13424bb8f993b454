package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/flowdeck-dev/flowdeck/internal/access"
	"github.com/flowdeck-dev/flowdeck/internal/authz"
	"github.com/flowdeck-dev/flowdeck/internal/models"
	"github.com/flowdeck-dev/flowdeck/internal/services"
	"github.com/flowdeck-dev/flowdeck/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type EditProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type AddProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type ProjectSummary struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	JobCount      int64  `json:"job_count"`
	EditProject   bool   `json:"edit_project"`
	ManageProject bool   `json:"manage_project"`
}

type ProjectHandler struct {
	DB       *gorm.DB
	Projects *services.ProjectService
	Authz    *authz.Authorizer
}

func NewProjectHandler(db *gorm.DB, projects *services.ProjectService, authorizer *authz.Authorizer) *ProjectHandler {
	return &ProjectHandler{
		DB:       db,
		Projects: projects,
		Authz:    authorizer,
	}
}

// ListProjects backs the project list view: every project the requester may
// read, with the per-project edit/manage flags the view needs.
func (h *ProjectHandler) ListProjects(ctx *gin.Context) {
	userID, _ := utils.GetCurrentUserID(ctx)

	var projects []models.Project

	if err := h.DB.Order("id").Find(&projects).Error; err != nil {
		log.Printf("Failed to list projects: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve projects"})
		return
	}

	response := []ProjectSummary{}

	for i := range projects {
		project := &projects[i]

		if !h.Authz.Read(project, userID) {
			continue
		}

		var jobCount int64

		if err := h.DB.Model(&models.Job{}).Where("project_id = ?", project.ID).Count(&jobCount).Error; err != nil {
			log.Printf("Failed to count jobs for project %d: %v", project.ID, err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve projects"})
			return
		}

		response = append(response, ProjectSummary{
			ID:            project.ID,
			Name:          project.Name,
			Description:   project.Description,
			JobCount:      jobCount,
			EditProject:   h.Authz.Update(project, userID),
			ManageProject: h.Authz.Manage(project, userID),
		})
	}

	ctx.JSON(http.StatusOK, response)
}

// EditProjectForm returns the current field values for the edit form.
func (h *ProjectHandler) EditProjectForm(ctx *gin.Context) {
	project, ok := h.loadProject(ctx)

	if !ok {
		return
	}

	userID, _ := utils.GetCurrentUserID(ctx)

	if !h.Authz.Update(project, userID) {
		renderUnauthorized(ctx)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"title":       fmt.Sprintf("Edit Project %d", project.ID),
		"name":        project.Name,
		"description": project.Description,
		"back_url":    projectJobsURL(project.ID),
	})
}

// EditProject renames the project. The backing directory moves with it and
// every job path is rewritten to the new prefix.
func (h *ProjectHandler) EditProject(ctx *gin.Context) {
	project, ok := h.loadProject(ctx)

	if !ok {
		return
	}

	userID, _ := utils.GetCurrentUserID(ctx)

	if !h.Authz.Update(project, userID) {
		renderUnauthorized(ctx)
		return
	}

	var body EditProjectRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.Projects.Rename(project, body.Name, body.Description); err != nil {
		if errors.Is(err, services.ErrNameTaken) {
			ctx.JSON(http.StatusConflict, gin.H{
				"message": fmt.Sprintf("A project with the name %s already exists.", body.Name),
			})
			return
		}
		log.Printf("Failed to rename project %d: %v", project.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":  "Project updated successfully.",
		"redirect": projectJobsURL(project.ID),
	})
}

// ManageProjectForm returns the permission matrix for the management view.
func (h *ProjectHandler) ManageProjectForm(ctx *gin.Context) {
	project, ok := h.loadProject(ctx)

	if !ok {
		return
	}

	userID, _ := utils.GetCurrentUserID(ctx)

	if !h.Authz.Manage(project, userID) {
		renderUnauthorized(ctx)
		return
	}

	matrix, err := access.BuildMatrix(h.DB, project, userID)

	if err != nil {
		log.Printf("Failed to build permission matrix for project %d: %v", project.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve permissions"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"project":      ProjectSummary{ID: project.ID, Name: project.Name, Description: project.Description},
		"users":        matrix.Users,
		"actions":      access.Actions,
		"allow_public": matrix.PublicRead,
		"back_url":     projectJobsURL(project.ID),
	})
}

// ManageProject applies a submitted checkbox matrix. Field names follow the
// user_<id>_<action> shape; anything not re-checked is revoked.
func (h *ProjectHandler) ManageProject(ctx *gin.Context) {
	project, ok := h.loadProject(ctx)

	if !ok {
		return
	}

	userID, _ := utils.GetCurrentUserID(ctx)

	if !h.Authz.Manage(project, userID) {
		renderUnauthorized(ctx)
		return
	}

	var fields map[string]bool

	if err := ctx.BindJSON(&fields); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	sub := access.Submission{
		AllowPublic: fields["allow_public"],
		Grants:      access.ParseGrantFields(fields),
	}

	if err := access.Reconcile(h.DB, project, sub); err != nil {
		log.Printf("Failed to update permissions for project %d: %v", project.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update permissions"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":  fmt.Sprintf("Permissions for %s successfully updated.", project.Name),
		"redirect": projectJobsURL(project.ID),
	})
}

// AddProjectForm returns the empty creation form data.
func (h *ProjectHandler) AddProjectForm(ctx *gin.Context) {
	if _, err := utils.GetCurrentUser(ctx); err != nil {
		renderNotFound(ctx)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"title":    "Add project",
		"back_url": "/#projects",
	})
}

// AddProject creates a project directory under the datastore and its record.
func (h *ProjectHandler) AddProject(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		renderNotFound(ctx)
		return
	}

	var body AddProjectRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	project, err := h.Projects.Create(body.Name, body.Description, currentUser.ID)

	if err != nil {
		log.Printf("Failed to create project %q: %v", body.Name, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message":  fmt.Sprintf("Project %s added.", project.Name),
		"redirect": "/#projects",
	})
}

func (h *ProjectHandler) loadProject(ctx *gin.Context) (*models.Project, bool) {
	projectID, err := utils.GetProjectID(ctx)

	if err != nil {
		renderNotFound(ctx)
		return nil, false
	}

	var project models.Project

	if err := h.DB.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			renderNotFound(ctx)
		} else {
			log.Printf("Failed to retrieve project %d: %v", projectID, err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
		}
		return nil, false
	}

	return &project, true
}

func projectJobsURL(projectID uint) string {
	return fmt.Sprintf("/#projects/%d/jobs", projectID)
}

func renderUnauthorized(ctx *gin.Context) {
	ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
}

func renderNotFound(ctx *gin.Context) {
	ctx.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
}
