package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	mismatchdomain "github.com/smallbiznis/rateboard/internal/ratemismatch/domain"
	"github.com/smallbiznis/rateboard/internal/ratemismatch/report"
)

type analysisRunView struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	RowCount   int       `json:"row_count"`
	Unresolved int       `json:"unresolved"`
	Upgrades   int       `json:"upgrades"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (s *Server) AnalyzeMismatches(c *gin.Context) {
	refresh, err := parseOptionalBool(c.Query("refresh"))
	if err != nil {
		AbortWithError(c, newValidationError("refresh", "invalid_bool", "refresh must be true or false"))
		return
	}

	resp, err := s.mismatches.Analyze(c.Request.Context(), mismatchdomain.AnalyzeRequest{
		Refresh: lo.FromPtr(refresh),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAnalysisRuns(c *gin.Context) {
	runs, err := s.mismatches.ListRuns(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := lo.Map(runs, func(run mismatchdomain.AnalysisRun, _ int) analysisRunView {
		return analysisRunView{
			ID:         run.ID.String(),
			Source:     run.Source,
			RowCount:   run.RowCount,
			Unresolved: run.Unresolved,
			Upgrades:   run.Upgrades,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
		}
	})

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// DownloadReport renders the latest stored analysis as a PDF.
func (s *Server) DownloadReport(c *gin.Context) {
	latest, err := s.mismatches.LatestReport(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := report.Render(c.Request.Context(), latest)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	body, err := io.ReadAll(doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="rate-mismatch-%s.pdf"`, latest.RunID))
	c.Data(http.StatusOK, "application/pdf", body)
}
