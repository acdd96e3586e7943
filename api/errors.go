package api

import (
	"net/http"

	"github.com/avelinag/skyfare/internal/domain"
	"github.com/gin-gonic/gin"
)

// respondError maps the domain error taxonomy onto HTTP statuses: missing
// resources are 404, state conflicts are 409, anything else is a 500 the
// caller may retry (the underlying operations are atomic).
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.NotFound(err):
		status = http.StatusNotFound
	case domain.Conflict(err):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
