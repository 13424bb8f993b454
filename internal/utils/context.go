package utils

import (
	"fmt"
	"strconv"

	"github.com/flowdeck-dev/flowdeck/internal/middleware"
	"github.com/flowdeck-dev/flowdeck/internal/types"
	"github.com/gin-gonic/gin"
)

func GetCurrentUser(ctx *gin.Context) (middleware.AuthenticatedUser, error) {
	user, exists := ctx.Get(types.ContextUserKey)

	if !exists {
		return middleware.AuthenticatedUser{}, fmt.Errorf("User not authenticated")
	}

	authenticatedUser, ok := user.(middleware.AuthenticatedUser)

	if !ok {
		return middleware.AuthenticatedUser{}, fmt.Errorf("Invalid user type in context")
	}

	return authenticatedUser, nil
}

func GetCurrentUserID(ctx *gin.Context) (uint, error) {
	user, err := GetCurrentUser(ctx)

	if err != nil {
		return 0, err
	}

	return user.ID, nil
}

func GetProjectID(ctx *gin.Context) (uint, error) {
	projectIDParam := ctx.Param("project_id")

	projectID, err := strconv.ParseUint(projectIDParam, 10, 64)

	if err != nil {
		return 0, fmt.Errorf("Invalid project ID")
	}

	return uint(projectID), nil
}
