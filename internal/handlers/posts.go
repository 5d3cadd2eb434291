package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tiktok-monitor-go/internal/model"
)

// RecentPosts returns the most recently processed posts, optionally filtered
// by account handle.
func (h *Handlers) RecentPosts(c *gin.Context) {
	handle := c.Query("handle")

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	posts, err := h.ledger.RecentPosts(handle, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"posts": posts, "count": len(posts)})
}
