package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/flowdeck-dev/flowdeck/config"
	"github.com/flowdeck-dev/flowdeck/internal/access"
	"github.com/flowdeck-dev/flowdeck/internal/auth"
	"github.com/flowdeck-dev/flowdeck/internal/models"
	"github.com/flowdeck-dev/flowdeck/internal/router"
)

type testServer struct {
	engine    *gin.Engine
	db        *gorm.DB
	datastore string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	gin.SetMode(gin.TestMode)
	require.NoError(t, auth.Init("test-secret"))

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Job{},
		&models.ProjectAccess{},
	))

	datastore := t.TempDir()

	cfg := &config.Config{
		Datastore: config.DatastoreConfig{Root: datastore},
	}

	return &testServer{
		engine:    router.NewRouter(db, cfg),
		db:        db,
		datastore: datastore,
	}
}

func (s *testServer) createUser(t *testing.T, username string) (models.User, string) {
	t.Helper()

	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
	}
	require.NoError(t, s.db.Create(&user).Error)

	token, err := auth.GenerateJWT(user.ID, user.Username)
	require.NoError(t, err)

	return user, token
}

func (s *testServer) createProject(t *testing.T, name string, ownerID uint) *models.Project {
	t.Helper()

	path := filepath.Join(s.datastore, "projects", name)
	require.NoError(t, os.MkdirAll(path, 0o755))

	project := models.Project{
		Name:        name,
		Path:        path,
		OwnerID:     ownerID,
		Permissions: models.PermissionMap{"other": {}},
	}
	require.NoError(t, s.db.Create(&project).Error)

	return &project
}

func (s *testServer) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	s.engine.ServeHTTP(recorder, req)

	return recorder
}

func TestManageProject_NotFound(t *testing.T) {
	server := newTestServer(t)
	_, token := server.createUser(t, "alice")

	resp := server.request(t, http.MethodGet, "/projects/999/manage", token, nil)

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestEditProject_Unauthorized(t *testing.T) {
	server := newTestServer(t)
	owner, _ := server.createUser(t, "owner")
	_, strangerToken := server.createUser(t, "stranger")
	project := server.createProject(t, "demo", owner.ID)

	resp := server.request(t, http.MethodPost, "/projects/1/edit", strangerToken, gin.H{
		"name": "hijacked",
	})

	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	var stored models.Project
	require.NoError(t, server.db.First(&stored, project.ID).Error)
	assert.Equal(t, "demo", stored.Name)
}

func TestEditProject_RenameAndCollision(t *testing.T) {
	server := newTestServer(t)
	owner, token := server.createUser(t, "owner")
	project := server.createProject(t, "demo", owner.ID)
	server.createProject(t, "taken", owner.ID)

	require.NoError(t, server.db.Create(&models.Job{
		ProjectID: project.ID,
		Title:     "job_1",
		Status:    "finished",
		Path:      filepath.Join(project.Path, "job_1"),
	}).Error)

	resp := server.request(t, http.MethodPost, "/projects/1/edit", token, gin.H{
		"name":        "taken",
		"description": "",
	})
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), "already exists")

	resp = server.request(t, http.MethodPost, "/projects/1/edit", token, gin.H{
		"name":        "renamed",
		"description": "new words",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var stored models.Project
	require.NoError(t, server.db.First(&stored, project.ID).Error)
	assert.Equal(t, "renamed", stored.Name)
	assert.Equal(t, filepath.Join(server.datastore, "projects", "renamed"), stored.Path)

	var job models.Job
	require.NoError(t, server.db.Where("project_id = ?", project.ID).First(&job).Error)
	assert.Equal(t, filepath.Join(stored.Path, "job_1"), job.Path)

	_, err := os.Stat(stored.Path)
	require.NoError(t, err)
}

func TestManageProject_Reconciles(t *testing.T) {
	server := newTestServer(t)
	owner, token := server.createUser(t, "owner")
	member, _ := server.createUser(t, "member")
	project := server.createProject(t, "demo", owner.ID)

	resp := server.request(t, http.MethodPost, "/projects/1/manage", token, gin.H{
		"user_2_read":   true,
		"user_2_update": true,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "successfully updated")

	var entry models.ProjectAccess
	require.NoError(t, server.db.Where("user_id = ? AND project_id = ?", member.ID, project.ID).First(&entry).Error)
	assert.ElementsMatch(t, []string{"read", "update"}, entry.Permissions)

	// Unchecking revokes
	resp = server.request(t, http.MethodPost, "/projects/1/manage", token, gin.H{
		"user_2_read": true,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	require.NoError(t, server.db.Where("user_id = ? AND project_id = ?", member.ID, project.ID).First(&entry).Error)
	assert.Equal(t, models.StringList{access.ActionRead}, entry.Permissions)
}

func TestManageProject_PublicToggle(t *testing.T) {
	server := newTestServer(t)
	owner, token := server.createUser(t, "owner")
	project := server.createProject(t, "demo", owner.ID)

	resp := server.request(t, http.MethodPost, "/projects/1/manage", token, gin.H{
		"allow_public": true,
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var stored models.Project
	require.NoError(t, server.db.First(&stored, project.ID).Error)
	assert.Equal(t, models.StringList{access.ActionRead}, stored.Permissions["other"])
}

func TestManageProjectForm_Matrix(t *testing.T) {
	server := newTestServer(t)
	owner, token := server.createUser(t, "owner")
	member, _ := server.createUser(t, "member")
	project := server.createProject(t, "demo", owner.ID)

	require.NoError(t, server.db.Create(&models.ProjectAccess{
		UserID:      member.ID,
		ProjectID:   project.ID,
		Permissions: models.StringList{access.ActionRead},
	}).Error)

	resp := server.request(t, http.MethodGet, "/projects/1/manage", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Users []struct {
			ID       uint            `json:"id"`
			Username string          `json:"username"`
			Grants   map[string]bool `json:"grants"`
		} `json:"users"`
		AllowPublic bool `json:"allow_public"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))

	require.Len(t, body.Users, 2)
	assert.Equal(t, "owner", body.Users[0].Username)
	assert.Equal(t, "member", body.Users[1].Username)
	assert.True(t, body.Users[1].Grants["read"])
	assert.False(t, body.Users[1].Grants["manage"])
	assert.False(t, body.AllowPublic)
}

func TestAddProject(t *testing.T) {
	server := newTestServer(t)
	_, token := server.createUser(t, "alice")

	t.Run("anonymous rejected", func(t *testing.T) {
		resp := server.request(t, http.MethodPost, "/projects/add", "", gin.H{
			"name": "anon",
		})
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("creates directory and record", func(t *testing.T) {
		resp := server.request(t, http.MethodPost, "/projects/add", token, gin.H{
			"name":        "fresh",
			"description": "brand new",
		})
		require.Equal(t, http.StatusCreated, resp.Code)

		var stored models.Project
		require.NoError(t, server.db.Where("name = ?", "fresh").First(&stored).Error)
		assert.Equal(t, filepath.Join(server.datastore, "projects", "fresh"), stored.Path)

		info, err := os.Stat(stored.Path)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestListProjects_Visibility(t *testing.T) {
	server := newTestServer(t)
	owner, ownerToken := server.createUser(t, "owner")

	private := server.createProject(t, "private", owner.ID)
	public := server.createProject(t, "public", owner.ID)
	public.Permissions = models.PermissionMap{"other": {access.ActionRead}}
	require.NoError(t, server.db.Save(public).Error)

	t.Run("anonymous sees only public", func(t *testing.T) {
		resp := server.request(t, http.MethodGet, "/views/projects", "", nil)
		require.Equal(t, http.StatusOK, resp.Code)

		var body []map[string]interface{}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		require.Len(t, body, 1)
		assert.Equal(t, "public", body[0]["name"])
	})

	t.Run("owner sees both with flags", func(t *testing.T) {
		resp := server.request(t, http.MethodGet, "/views/projects", ownerToken, nil)
		require.Equal(t, http.StatusOK, resp.Code)

		var body []struct {
			Name   string `json:"name"`
			Edit   bool   `json:"edit_project"`
			Manage bool   `json:"manage_project"`
		}
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
		require.Len(t, body, 2)
		assert.Equal(t, private.Name, body[0].Name)
		assert.True(t, body[0].Edit)
		assert.True(t, body[0].Manage)
	})
}

func TestProjectJobsView(t *testing.T) {
	server := newTestServer(t)
	owner, token := server.createUser(t, "owner")
	project := server.createProject(t, "demo", owner.ID)

	require.NoError(t, server.db.Create(&models.Job{
		ProjectID: project.ID,
		Title:     "optimization",
		Status:    "running",
		Path:      filepath.Join(project.Path, "job_1"),
	}).Error)

	resp := server.request(t, http.MethodGet, "/views/projects/1/jobs", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		Jobs []struct {
			Title  string `json:"title"`
			Status string `json:"status"`
		} `json:"jobs"`
		EditProject   bool   `json:"edit_project"`
		ManageProject bool   `json:"manage_project"`
		EditURL       string `json:"edit_url"`
		ManageURL     string `json:"manage_url"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))

	require.Len(t, body.Jobs, 1)
	assert.Equal(t, "optimization", body.Jobs[0].Title)
	assert.True(t, body.EditProject)
	assert.True(t, body.ManageProject)
	assert.Equal(t, "/projects/1/edit", body.EditURL)
	assert.Equal(t, "/projects/1/manage", body.ManageURL)
}
