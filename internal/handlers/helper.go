package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/exam-delivery-service/internal/middleware"
	"github.com/SAP-F-2025/exam-delivery-service/internal/services"
	"github.com/gin-gonic/gin"
)

// parseIDParam reads a positive numeric path parameter. On failure it has
// already written a 400 and returns 0.
func parseIDParam(c *gin.Context, param string) uint {
	idStr := strings.TrimSpace(c.Param(param))
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "must be a positive integer",
			Code:    "bad_request",
		})
		return 0
	}
	return uint(id)
}

// currentUser returns the authenticated caller. On failure it has already
// written a 401.
func currentUser(c *gin.Context) *services.UserInfo {
	user, ok := middleware.UserFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
			Code:    "unauthorized",
		})
		return nil
	}
	return user
}
