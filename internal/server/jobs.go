package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jimezsa/jobsearch/internal/apperr"
	"github.com/jimezsa/jobsearch/internal/models"
	"github.com/jimezsa/jobsearch/internal/search"
)

func (s *Server) startSearch(c *gin.Context) {
	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	accepted, err := s.search.Start(req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, accepted)
	case errors.Is(err, search.ErrInProgress):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Search already in progress"})
	case apperr.KindOf(err) == apperr.KindInput:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Job title and location are required"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to run job search"})
	}
}

func (s *Server) status(c *gin.Context) {
	status, err := s.search.Status(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get status"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) results(c *gin.Context) {
	perPage := queryInt(c, "per_page", search.DefaultPerPage)
	page := queryInt(c, "page", 1)

	results, err := s.search.Results(c.Request.Context(), page, perPage)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get job results"})
		return
	}
	c.JSON(http.StatusOK, results)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
