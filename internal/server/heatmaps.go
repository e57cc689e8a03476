package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	heatmapdomain "github.com/smallbiznis/rateboard/internal/heatmap/domain"
	obscontext "github.com/smallbiznis/rateboard/internal/observability/context"
	"github.com/smallbiznis/rateboard/internal/session"
	"go.uber.org/zap"
)

func (s *Server) ListDatasets(c *gin.Context) {
	resp, err := s.heatmapSvc.ListDatasets(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// RenderHeatmap draws one dataset. When a session is given, a missing range or
// year falls back to the tab state, and explicit values are written back.
func (s *Server) RenderHeatmap(c *gin.Context) {
	dataset := strings.TrimSpace(c.Param("dataset"))

	start, err := parseOptionalDate(c.Query("start"))
	if err != nil {
		AbortWithError(c, newValidationError("start", "invalid_date", "start must be YYYY-MM-DD"))
		return
	}
	end, err := parseOptionalDate(c.Query("end"))
	if err != nil {
		AbortWithError(c, newValidationError("end", "invalid_date", "end must be YYYY-MM-DD"))
		return
	}
	normalize, err := parseOptionalBool(c.Query("normalize"))
	if err != nil {
		AbortWithError(c, newValidationError("normalize", "invalid_bool", "normalize must be true or false"))
		return
	}
	colorMin, err := parseOptionalFloat(c.Query("color_min"))
	if err != nil {
		AbortWithError(c, newValidationError("color_min", "invalid_number", "color_min must be a number"))
		return
	}
	colorMax, err := parseOptionalFloat(c.Query("color_max"))
	if err != nil {
		AbortWithError(c, newValidationError("color_max", "invalid_number", "color_max must be a number"))
		return
	}

	req := heatmapdomain.RenderRequest{
		Dataset:     dataset,
		ValueColumn: strings.TrimSpace(c.Query("value_column")),
		Year:        heatmapdomain.YearMode(strings.ToLower(strings.TrimSpace(c.Query("year")))),
		ColorScale:  strings.TrimSpace(c.Query("color_scale")),
		Bounds:      heatmapdomain.BoundsMode(strings.ToLower(strings.TrimSpace(c.Query("bounds")))),
		ColorMin:    colorMin,
		ColorMax:    colorMax,
	}
	if normalize != nil {
		req.Normalize = *normalize
	}
	if start != nil {
		req.Start = *start
	}
	if end != nil {
		req.End = *end
	}

	ctx := c.Request.Context()
	state, err := s.requestSession(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if state != nil {
		ctx = obscontext.WithSessionID(ctx, state.ID)
		tab := state.Tab(dataset)
		if req.Year == "" {
			req.Year = tab.Year
		}
		if start == nil && end == nil && tab.Viewport != nil {
			req.Start = tab.Viewport.Start
			req.End = tab.Viewport.End
		}
	}

	model, err := s.heatmapSvc.Render(ctx, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if state != nil {
		s.rememberTab(c, state.ID, dataset, start, end, c.Query("year") != "", model)
	}

	c.JSON(http.StatusOK, gin.H{"data": model})
}

func (s *Server) GetGlobalBounds(c *gin.Context) {
	start, err := parseOptionalDate(c.Query("start"))
	if err != nil {
		AbortWithError(c, newValidationError("start", "invalid_date", "start must be YYYY-MM-DD"))
		return
	}
	end, err := parseOptionalDate(c.Query("end"))
	if err != nil {
		AbortWithError(c, newValidationError("end", "invalid_date", "end must be YYYY-MM-DD"))
		return
	}
	normalize, err := parseOptionalBool(c.Query("normalize"))
	if err != nil {
		AbortWithError(c, newValidationError("normalize", "invalid_bool", "normalize must be true or false"))
		return
	}

	req := heatmapdomain.BoundsRequest{
		Year: heatmapdomain.YearMode(strings.ToLower(strings.TrimSpace(c.Query("year")))),
	}
	if start != nil {
		req.Start = *start
	}
	if end != nil {
		req.End = *end
	}
	if normalize != nil {
		req.Normalize = *normalize
	}

	bounds, err := s.heatmapSvc.GlobalBounds(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": bounds})
}

// requestSession returns nil when the request names no session.
func (s *Server) requestSession(c *gin.Context) (*session.State, error) {
	id := strings.TrimSpace(c.Query("session_id"))
	if id == "" {
		id = strings.TrimSpace(c.GetHeader("X-Session-Id"))
	}
	if id == "" {
		return nil, nil
	}
	return s.sessions.Get(c.Request.Context(), id)
}

func (s *Server) rememberTab(c *gin.Context, id, dataset string, start, end *time.Time, yearGiven bool, model *heatmapdomain.RenderModel) {
	ctx := c.Request.Context()
	if start != nil && end != nil {
		if _, err := s.sessions.SetViewport(ctx, id, dataset, session.Viewport{Start: *start, End: *end}); err != nil {
			s.log.Warn("failed to store viewport", zap.String("session_id", id), zap.Error(err))
		}
	}
	if yearGiven {
		if _, err := s.sessions.SetYear(ctx, id, dataset, model.Year); err != nil {
			s.log.Warn("failed to store year", zap.String("session_id", id), zap.Error(err))
		}
	}
}
