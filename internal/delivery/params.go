package delivery

import (
	"net/http"
	"strconv"

	"store_service/internal/middleware"

	"github.com/gin-gonic/gin"
)

func idParam(c *gin.Context, name, what string) (int, bool) {
	idStr := c.Param(name)
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid "+what+" ID format")
		return 0, false
	}
	return id, true
}

func currentUser(c *gin.Context) (int, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "User identification missing")
	}
	return userID, ok
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid value for '"+name+"'")
		return 0, false
	}
	return v, true
}

func queryBool(c *gin.Context, name string) (*bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid value for '"+name+"'")
		return nil, false
	}
	return &v, true
}
