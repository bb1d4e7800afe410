package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jimezsa/jobsearch/internal/normalize"
	"github.com/xeipuuv/gojsonschema"
)

const userKey = "userEmail"

var saveSchema = gojsonschema.NewStringLoader(`{
  "type": "object",
  "required": ["jobs"],
  "properties": {
    "jobs": {
      "type": "array",
      "items": {"type": "object"}
    }
  }
}`)

func requireUser(c *gin.Context) {
	user := strings.ToLower(strings.TrimSpace(c.GetHeader(UserHeader)))
	if user == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}
	c.Set(userKey, user)
	c.Next()
}

func (s *Server) loadSaved(c *gin.Context) {
	user := c.GetString(userKey)
	saved, err := s.saved.Load(c.Request.Context(), user)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load saved jobs"})
		return
	}

	body := gin.H{
		"success":   true,
		"jobs":      saved.Jobs,
		"totalJobs": saved.TotalJobs,
		"userEmail": user,
	}
	if saved.UpdatedAt.IsZero() {
		body["message"] = "No saved jobs found"
	} else {
		body["updatedAt"] = saved.UpdatedAt
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) saveSaved(c *gin.Context) {
	user := c.GetString(userKey)
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read body"})
		return
	}
	if err := validateSave(raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Jobs must be an array", "details": err.Error()})
		return
	}

	var payload struct {
		Jobs []map[string]any `json:"jobs"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON format: " + err.Error()})
		return
	}

	jobs := normalize.Records(payload.Jobs, s.now())
	saved, err := s.saved.Save(c.Request.Context(), user, jobs)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save jobs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   fmt.Sprintf("Saved %d jobs successfully", saved.TotalJobs),
		"totalJobs": saved.TotalJobs,
		"userEmail": user,
	})
}

// validateSave checks the body against saveSchema.
func validateSave(raw []byte) error {
	res, err := gojsonschema.Validate(saveSchema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return errors.New(strings.Join(msgs, "; "))
}
