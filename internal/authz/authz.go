package authz

import (
	"github.com/flowdeck-dev/flowdeck/internal/access"
	"github.com/flowdeck-dev/flowdeck/internal/models"
	"gorm.io/gorm"
)

// Authorizer answers per-user permission checks against the access table.
// The project owner passes every check; everyone else needs the action in
// their access entry. Read additionally passes when the project's public
// slot grants it.
type Authorizer struct {
	db *gorm.DB
}

func NewAuthorizer(db *gorm.DB) *Authorizer {
	return &Authorizer{db: db}
}

func (a *Authorizer) Read(project *models.Project, userID uint) bool {
	if project.PublicRead() {
		return true
	}

	return a.allowed(project, userID, access.ActionRead)
}

func (a *Authorizer) Update(project *models.Project, userID uint) bool {
	return a.allowed(project, userID, access.ActionUpdate)
}

func (a *Authorizer) Manage(project *models.Project, userID uint) bool {
	return a.allowed(project, userID, access.ActionManage)
}

func (a *Authorizer) allowed(project *models.Project, userID uint, action string) bool {
	if project == nil || userID == 0 {
		return false
	}

	if project.OwnerID == userID {
		return true
	}

	var entry models.ProjectAccess

	if err := a.db.Where("user_id = ? AND project_id = ?", userID, project.ID).First(&entry).Error; err != nil {
		return false
	}

	return entry.Permissions.Contains(action)
}
