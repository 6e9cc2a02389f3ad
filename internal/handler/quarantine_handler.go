package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetQuarantine returns recent quarantine records, optionally filtered by
// review status
func (h *Handlers) GetQuarantine(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	status := c.Query("status")

	records, err := h.store.ListQuarantine(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to list quarantine records",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
	})
}
