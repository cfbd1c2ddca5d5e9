package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/marathon-portfolio/internal/tracker"
)

// ProgressRequest is one stateless tracker step. Last defaults to the
// course's start state.
type ProgressRequest struct {
	Previous       *tracker.ScrollSample  `json:"previous,omitempty"`
	Current        tracker.ScrollSample   `json:"current"`
	Last           *tracker.ProgressState `json:"last,omitempty"`
	ScrollHeight   float64                `json:"scrollHeight"`
	ViewportHeight float64                `json:"viewportHeight"`
}

func (s *Server) computeProgress(c *gin.Context) {
	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.ScrollHeight < 0 || req.ViewportHeight < 0 || req.Current.Position < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "geometry and position must be non-negative"})
		return
	}

	last := s.deps.Course.Start()
	if req.Last != nil {
		last = *req.Last
	}
	geom := tracker.Geometry{ScrollHeight: req.ScrollHeight, ViewportHeight: req.ViewportHeight}
	c.JSON(http.StatusOK, s.deps.Course.OnScroll(last, req.Previous, req.Current, geom.Scrollable()))
}
