package ui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"dixonq/domain/core"
	"dixonq/domain/dixon"
	"dixonq/internal/errors"
	"dixonq/internal/streams"

	"github.com/gin-gonic/gin"
)

const defaultEvaluationLimit = 50

// ingestRequest carries samples for POST /streams/:id/samples
type ingestRequest struct {
	Values []float64 `json:"values" binding:"required"`
}

// openRequest carries optional settings for POST /streams/:id.
// Zero fields fall back to the registry defaults.
type openRequest struct {
	Capacity int                `json:"capacity"`
	Level    json.Number        `json:"confidence_level"`
	Policy   dixon.WindowPolicy `json:"policy"`
}

type ingestResponse struct {
	Stream      streams.StreamInfo  `json:"stream"`
	Evaluations []*dixon.Evaluation `json:"evaluations"`
}

func respondError(c *gin.Context, err error) {
	c.JSON(errors.HTTPStatus(err), gin.H{
		"error": err.Error(),
		"code":  errors.GetCode(err),
	})
}

func streamID(c *gin.Context) (core.StreamID, bool) {
	id, err := core.ParseStreamID(c.Param("id"))
	if err != nil {
		respondError(c, errors.WithCode(errors.CodeInvalidInput, err))
		return "", false
	}
	return id, true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"streams": len(s.registry.Streams()),
		"ledger":  s.ledger != nil,
	})
}

// handleCriticalValue looks up the threshold for ?n= and ?level= (default 95)
func (s *Server) handleCriticalValue(c *gin.Context) {
	n, err := strconv.Atoi(c.Query("n"))
	if err != nil {
		respondError(c, errors.InvalidInput(fmt.Sprintf("n must be an integer, got %q", c.Query("n"))))
		return
	}
	level, err := dixon.ParseConfidenceLevel(c.DefaultQuery("level", "95"))
	if err != nil {
		respondError(c, err)
		return
	}
	v, err := dixon.CriticalValue(n, level)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"n":                n,
		"confidence_level": level,
		"critical_value":   v,
	})
}

func (s *Server) handleListStreams(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"streams": s.registry.Streams()})
}

func (s *Server) handleOpenStream(c *gin.Context) {
	id, ok := streamID(c)
	if !ok {
		return
	}

	var req openRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, errors.InvalidInput("invalid request body: "+err.Error()))
			return
		}
	}

	settings := s.registry.Defaults()
	if req.Capacity != 0 {
		settings.Capacity = req.Capacity
	}
	if req.Level != "" {
		level, err := dixon.ParseConfidenceLevel(req.Level.String())
		if err != nil {
			respondError(c, err)
			return
		}
		settings.Level = level
	}
	if req.Policy != "" {
		settings.Policy = req.Policy
	}

	info, err := s.registry.Open(id, settings)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (s *Server) handleGetStream(c *gin.Context) {
	id, ok := streamID(c)
	if !ok {
		return
	}
	info, err := s.registry.Snapshot(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleCloseStream(c *gin.Context) {
	id, ok := streamID(c)
	if !ok {
		return
	}
	if err := s.registry.Close(id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleResetStream(c *gin.Context) {
	id, ok := streamID(c)
	if !ok {
		return
	}
	if err := s.registry.Reset(id); err != nil {
		respondError(c, err)
		return
	}
	info, err := s.registry.Snapshot(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// handleIngest feeds the posted values in order. Values accepted before a
// rejected one stay ingested; the error response says which value failed.
func (s *Server) handleIngest(c *gin.Context) {
	id, ok := streamID(c)
	if !ok {
		return
	}

	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return
	}

	evals, err := s.registry.IngestBatch(c.Request.Context(), id, req.Values)
	if err != nil {
		respondError(c, err)
		return
	}
	info, err := s.registry.Snapshot(id)
	if err != nil {
		respondError(c, err)
		return
	}
	if evals == nil {
		evals = []*dixon.Evaluation{}
	}
	c.JSON(http.StatusOK, ingestResponse{Stream: info, Evaluations: evals})
}

func (s *Server) handleListEvaluations(c *gin.Context) {
	id, ok := streamID(c)
	if !ok {
		return
	}
	if s.ledger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "evaluation ledger is not configured",
			"code":  errors.CodeDatabaseError,
		})
		return
	}

	limit := defaultEvaluationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, errors.InvalidInput(fmt.Sprintf("limit must be a positive integer, got %q", raw)))
			return
		}
		limit = n
	}

	evals, err := s.ledger.ListByStream(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if evals == nil {
		evals = []*dixon.Evaluation{}
	}
	c.JSON(http.StatusOK, gin.H{"stream_id": id, "evaluations": evals})
}
