package access

import (
	"errors"

	"github.com/flowdeck-dev/flowdeck/internal/models"
	"gorm.io/gorm"
)

const (
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionCreate = "create"
	ActionDelete = "delete"
	ActionManage = "manage"
)

// Actions are the recognized permission strings, in display order.
var Actions = []string{ActionRead, ActionUpdate, ActionCreate, ActionDelete, ActionManage}

// UserGrants is one row of the permission matrix: which of the recognized
// actions a user currently holds on the project.
type UserGrants struct {
	UserID   uint            `json:"id"`
	Username string          `json:"username"`
	Grants   map[string]bool `json:"grants"`
}

// Matrix is the full per-user permission state for a project, built from the
// access table at view time because the user roster is only known at runtime.
type Matrix struct {
	Users      []UserGrants `json:"users"`
	PublicRead bool         `json:"public_read"`
}

// BuildMatrix loads the full user roster and reports, for every user and
// every recognized action, whether that action is currently granted on the
// project. Users with no access entry get an all-false row. When more than
// one user exists the requester is moved to the front; a roster of one is
// left alone.
func BuildMatrix(db *gorm.DB, project *models.Project, requesterID uint) (*Matrix, error) {
	var users []models.User

	if err := db.Order("id").Find(&users).Error; err != nil {
		return nil, err
	}

	if len(users) > 1 {
		// Put the requester first
		reordered := make([]models.User, 0, len(users))
		rest := make([]models.User, 0, len(users))

		for _, user := range users {
			if user.ID == requesterID {
				reordered = append(reordered, user)
			} else {
				rest = append(rest, user)
			}
		}

		users = append(reordered, rest...)
	}

	matrix := &Matrix{
		Users:      make([]UserGrants, 0, len(users)),
		PublicRead: project.PublicRead(),
	}

	for _, user := range users {
		permissions, err := lookupPermissions(db, user.ID, project.ID)

		if err != nil {
			return nil, err
		}

		grants := make(map[string]bool, len(Actions))

		for _, action := range Actions {
			grants[action] = permissions.Contains(action)
		}

		matrix.Users = append(matrix.Users, UserGrants{
			UserID:   user.ID,
			Username: user.Username,
			Grants:   grants,
		})
	}

	return matrix, nil
}

// lookupPermissions returns the explicit permission list for a (user,
// project) pair, or an empty list when no entry exists.
func lookupPermissions(db *gorm.DB, userID, projectID uint) (models.StringList, error) {
	var entry models.ProjectAccess

	err := db.Where("user_id = ? AND project_id = ?", userID, projectID).First(&entry).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.StringList{}, nil
		}
		return nil, err
	}

	return entry.Permissions, nil
}
