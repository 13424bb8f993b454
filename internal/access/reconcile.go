package access

import (
	"errors"
	"strconv"
	"strings"

	"github.com/flowdeck-dev/flowdeck/internal/models"
	"gorm.io/gorm"
)

// Submission is the parsed state of the management form.
type Submission struct {
	AllowPublic bool
	// Grants maps a user id to the actions checked for that user. A user
	// absent from the map has everything unchecked.
	Grants map[uint][]string
}

// ParseGrantFields extracts per-user grants from checkbox fields named
// user_<id>_<action>. Only fields with a true value count; anything that
// does not match the shape is ignored.
func ParseGrantFields(fields map[string]bool) map[uint][]string {
	grants := make(map[uint][]string)

	for name, checked := range fields {
		if !checked {
			continue
		}

		parts := strings.Split(name, "_")

		if len(parts) != 3 || parts[0] != "user" {
			continue
		}

		userID, err := strconv.ParseUint(parts[1], 10, 64)

		if err != nil {
			continue
		}

		action := parts[2]

		if !isAction(action) {
			continue
		}

		grants[uint(userID)] = append(grants[uint(userID)], action)
	}

	return grants
}

func isAction(s string) bool {
	for _, action := range Actions {
		if action == s {
			return true
		}
	}
	return false
}

// Reconcile replaces the stored access state for the project with exactly
// the submitted matrix. Every user in the roster gets an entry: users absent
// from the submission have their permissions replaced with an empty list, so
// anything not re-checked is revoked. All writes happen in one transaction.
func Reconcile(db *gorm.DB, project *models.Project, sub Submission) error {
	var users []models.User

	if err := db.Order("id").Find(&users).Error; err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if sub.AllowPublic {
			permissions := make(models.PermissionMap, len(project.Permissions)+1)

			for class, granted := range project.Permissions {
				permissions[class] = granted
			}

			permissions["other"] = models.StringList{ActionRead}

			if err := tx.Model(project).Update("permissions", permissions).Error; err != nil {
				return err
			}

			project.Permissions = permissions
		}

		for _, user := range users {
			granted := models.StringList(sub.Grants[user.ID])

			if granted == nil {
				granted = models.StringList{}
			}

			var entry models.ProjectAccess

			err := tx.Where("user_id = ? AND project_id = ?", user.ID, project.ID).First(&entry).Error

			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}

				entry = models.ProjectAccess{
					UserID:      user.ID,
					ProjectID:   project.ID,
					Permissions: granted,
				}

				if err := tx.Create(&entry).Error; err != nil {
					return err
				}

				continue
			}

			entry.Permissions = granted

			if err := tx.Save(&entry).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
