package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	heatmapdomain "github.com/smallbiznis/rateboard/internal/heatmap/domain"
	"github.com/smallbiznis/rateboard/internal/session"
)

type viewportRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type yearRequest struct {
	Year string `json:"year"`
}

func (s *Server) CreateSession(c *gin.Context) {
	state, err := s.sessions.Create(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": state})
}

func (s *Server) GetSession(c *gin.Context) {
	state, err := s.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": state})
}

func (s *Server) SetViewport(c *gin.Context) {
	var req viewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	start, err := parseOptionalDate(req.Start)
	if err != nil || start == nil {
		AbortWithError(c, newValidationError("start", "invalid_date", "start must be YYYY-MM-DD"))
		return
	}
	end, err := parseOptionalDate(req.End)
	if err != nil || end == nil {
		AbortWithError(c, newValidationError("end", "invalid_date", "end must be YYYY-MM-DD"))
		return
	}

	state, err := s.sessions.SetViewport(c.Request.Context(), c.Param("id"), strings.TrimSpace(c.Param("dataset")), session.Viewport{
		Start: *start,
		End:   *end,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": state})
}

func (s *Server) SetYear(c *gin.Context) {
	var req yearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	year := heatmapdomain.YearMode(strings.ToLower(strings.TrimSpace(req.Year)))
	state, err := s.sessions.SetYear(c.Request.Context(), c.Param("id"), strings.TrimSpace(c.Param("dataset")), year)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": state})
}
