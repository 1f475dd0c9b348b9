package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	trialdomain "github.com/campushq/campushq/internal/trial/domain"
	"github.com/campushq/campushq/pkg/db/pagination"
)

// TriggerTrialRun starts a lifecycle check run and returns its summary.
func (s *Server) TriggerTrialRun(c *gin.Context) {
	summary, err := s.trialSvc.RunCheck(c.Request.Context(), operatorIdentity(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// GetLastTrialRun returns the most recent completed run summary.
func (s *Server) GetLastTrialRun(c *gin.Context) {
	summary, err := s.trialSvc.LastRun(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

// ListTrials returns a page of trial records, optionally filtered by
// lifecycle state.
func (s *Server) ListTrials(c *gin.Context) {
	var query struct {
		pagination.Pagination
		States string `form:"states"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var states []trialdomain.TrialState
	for _, raw := range strings.Split(query.States, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		state := trialdomain.TrialState(strings.ToUpper(raw))
		if !state.Valid() {
			AbortWithError(c, newValidationError("states", "invalid_state", "unknown lifecycle state "+raw))
			return
		}
		states = append(states, state)
	}

	resp, err := s.trialSvc.ListTrials(c.Request.Context(), trialdomain.ListTrialsRequest{
		States:     states,
		Pagination: query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Trials,
		"page_info": resp.PageInfo,
	})
}

// GetTrial returns one tenant's trial record.
func (s *Server) GetTrial(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Param("tenant_id"))
	if tenantID == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	rec, err := s.trialSvc.GetTrial(c.Request.Context(), tenantID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rec})
}
