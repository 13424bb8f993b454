package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/flowdeck-dev/flowdeck/internal/authz"
	"github.com/flowdeck-dev/flowdeck/internal/models"
	"github.com/flowdeck-dev/flowdeck/internal/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type JobSummary struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

type JobHandler struct {
	DB    *gorm.DB
	Authz *authz.Authorizer
}

func NewJobHandler(db *gorm.DB, authorizer *authz.Authorizer) *JobHandler {
	return &JobHandler{
		DB:    db,
		Authz: authorizer,
	}
}

// ProjectJobs backs the jobs-in-project view: the job list plus the
// edit/manage flags and URLs the view renders.
func (h *JobHandler) ProjectJobs(ctx *gin.Context) {
	projectID, err := utils.GetProjectID(ctx)

	if err != nil {
		renderNotFound(ctx)
		return
	}

	var project models.Project

	if err := h.DB.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			renderNotFound(ctx)
		} else {
			log.Printf("Failed to retrieve project %d: %v", projectID, err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve project"})
		}
		return
	}

	userID, _ := utils.GetCurrentUserID(ctx)

	if !h.Authz.Read(&project, userID) {
		renderUnauthorized(ctx)
		return
	}

	var jobs []models.Job

	if err := h.DB.Where("project_id = ?", project.ID).Order("id").Find(&jobs).Error; err != nil {
		log.Printf("Failed to list jobs for project %d: %v", project.ID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve jobs"})
		return
	}

	response := make([]JobSummary, 0, len(jobs))

	for _, job := range jobs {
		response = append(response, JobSummary{
			ID:        job.ID,
			Title:     job.Title,
			Status:    job.Status,
			Path:      job.Path,
			CreatedAt: job.CreatedAt,
		})
	}

	ctx.JSON(http.StatusOK, gin.H{
		"project":        ProjectSummary{ID: project.ID, Name: project.Name, Description: project.Description},
		"jobs":           response,
		"edit_project":   h.Authz.Update(&project, userID),
		"manage_project": h.Authz.Manage(&project, userID),
		"edit_url":       "/projects/" + strconv.FormatUint(uint64(project.ID), 10) + "/edit",
		"manage_url":     "/projects/" + strconv.FormatUint(uint64(project.ID), 10) + "/manage",
	})
}
