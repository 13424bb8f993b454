package services

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/flowdeck-dev/flowdeck/internal/models"
	"gorm.io/gorm"
)

var ErrNameTaken = errors.New("a project with that name already exists")

// ProjectService owns the filesystem side of projects: every project is
// backed by a directory under <datastore>/projects.
type ProjectService struct {
	db        *gorm.DB
	datastore string
}

func NewProjectService(db *gorm.DB, datastore string) *ProjectService {
	return &ProjectService{
		db:        db,
		datastore: datastore,
	}
}

// Create makes the backing directory and the project record. The name is not
// checked against existing projects here; a duplicate surfaces as a database
// error from the unique index.
func (s *ProjectService) Create(name, description string, ownerID uint) (*models.Project, error) {
	path := filepath.Join(s.datastore, "projects", name)

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}

	project := models.Project{
		Name:        name,
		Description: description,
		Path:        path,
		OwnerID:     ownerID,
		Permissions: models.PermissionMap{"other": {}},
	}

	if err := s.db.Create(&project).Error; err != nil {
		return nil, err
	}

	return &project, nil
}

// Rename moves the project's directory to a sibling named after the new name
// and rewrites the path of every job under it. The filesystem rename happens
// before any database write, so a failed rename leaves the database
// untouched. Returns ErrNameTaken when another project already holds the
// target name.
func (s *ProjectService) Rename(project *models.Project, newName, newDescription string) error {
	oldPath := project.Path
	newPath := filepath.Join(filepath.Dir(oldPath), newName)

	var existing models.Project

	err := s.db.Where("name = ? AND id <> ?", newName, project.ID).First(&existing).Error

	if err == nil {
		return ErrNameTaken
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if oldPath != newPath {
		if err := os.Rename(oldPath, newPath); err != nil {
			return err
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		// Every job path nests under the project path, so a prefix
		// replacement keeps the relative suffix intact.
		err := tx.Model(&models.Job{}).
			Where("project_id = ?", project.ID).
			Update("path", gorm.Expr("replace(path, ?, ?)", oldPath, newPath)).Error

		if err != nil {
			return err
		}

		project.Path = newPath
		project.Name = newName
		project.Description = newDescription

		return tx.Save(project).Error
	})
}
