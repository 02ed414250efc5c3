package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"phackdemo/domain/calibration"
	"phackdemo/domain/core"
	"phackdemo/domain/demo"
	"phackdemo/domain/run"
	"phackdemo/internal/errors"
	"phackdemo/internal/narrative"
	"phackdemo/ports"
)

const (
	defaultCalibrationN = 10000
	maxCalibrationN     = 1000000
	defaultRunsLimit    = 50
)

type createSessionRequest struct {
	Seed int64 `json:"seed"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			s.fail(c, errors.InvalidInput("invalid request body: "+err.Error()))
			return
		}
	}
	view, err := s.demo.NewSession(c.Request.Context(), req.Seed)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (s *Server) handleGetSession(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	view, err := s.demo.View(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleGetBatch(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	batch, err := s.demo.Batch(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, batch)
}

func (s *Server) handleBegin(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	view, err := s.demo.Begin(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleStartRun(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	view, err := s.demo.StartRun(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, view)
}

func (s *Server) handleShowExplanation(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	view, err := s.demo.ShowExplanation(id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleReset(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	view, err := s.demo.Reset(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleEvents streams session updates; ?follow=true keeps the stream open
// past the end of a run
func (s *Server) handleEvents(c *gin.Context) {
	id, ok := s.sessionID(c)
	if !ok {
		return
	}
	if _, err := s.demo.View(id); err != nil {
		s.fail(c, err)
		return
	}
	follow, _ := strconv.ParseBool(c.DefaultQuery("follow", "false"))
	s.hub.Stream(c, id, func() (demo.View, error) { return s.demo.View(id) }, !follow)
}

func (s *Server) handleListRuns(c *gin.Context) {
	if s.ledger == nil {
		c.JSON(http.StatusOK, gin.H{"runs": []run.Record{}, "totals": run.Totals{}})
		return
	}

	filters := ports.RunFilters{Limit: defaultRunsLimit}
	if status := c.Query("status"); status != "" {
		st := run.Status(status)
		if st != run.StatusComplete && st != run.StatusAborted {
			s.fail(c, errors.InvalidInput("status must be complete or aborted"))
			return
		}
		filters.Status = &st
	}
	var err error
	if filters.Limit, err = queryInt(c, "limit", defaultRunsLimit); err != nil {
		s.fail(c, err)
		return
	}
	if filters.Offset, err = queryInt(c, "offset", 0); err != nil {
		s.fail(c, err)
		return
	}

	ctx := c.Request.Context()
	runs, err := s.ledger.ListRuns(ctx, filters)
	if err != nil {
		s.fail(c, err)
		return
	}
	totals, err := s.ledger.Totals(ctx)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"runs":                runs,
		"totals":              totals,
		"false_positive_rate": totals.FalsePositiveRate(),
	})
}

func (s *Server) handleGetRun(c *gin.Context) {
	if s.ledger == nil {
		s.fail(c, errors.NotFound("run"))
		return
	}
	id, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		s.fail(c, errors.InvalidInput(err.Error()))
		return
	}
	record, err := s.ledger.GetRun(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleCalibration(c *gin.Context) {
	n, err := queryInt(c, "n", defaultCalibrationN)
	if err != nil {
		s.fail(c, err)
		return
	}
	if n <= 0 || n > maxCalibrationN {
		s.fail(c, errors.InvalidInput("n must be between 1 and "+strconv.Itoa(maxCalibrationN)))
		return
	}
	seed, err := strconv.ParseInt(c.DefaultQuery("seed", "1"), 10, 64)
	if err != nil {
		s.fail(c, errors.InvalidInput("seed must be an integer"))
		return
	}

	report, err := s.calibration.Report(c.Request.Context(), calibration.Request{
		Comparisons: n,
		SampleSize:  s.sampleSize,
		Seed:        seed,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleExplanation(c *gin.Context) {
	if c.Query("format") == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", narrative.RenderHTML(narrative.Explanation))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"markdown": narrative.Explanation,
		"html":     string(narrative.RenderHTML(narrative.Explanation)),
	})
}

func (s *Server) sessionID(c *gin.Context) (core.SessionID, bool) {
	id, err := core.ParseSessionID(c.Param("id"))
	if err != nil {
		s.fail(c, errors.InvalidInput(err.Error()))
		return "", false
	}
	return id, true
}

func (s *Server) fail(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": err.Error(),
		"code":  errors.GetCode(err),
	})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.InvalidInput(key + " must be a non-negative integer")
	}
	return v, nil
}
