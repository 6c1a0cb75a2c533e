package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"subtrans/internal/queue"
	"subtrans/internal/workflow"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "running": s.Busy()})
}

func (s *Server) handleQueue(c *gin.Context) {
	c.JSON(http.StatusOK, QueueListResponse{
		Items:  FromWorkItems(s.queue.Items()),
		Counts: QueueCounts(s.queue.Summary()),
	})
}

func (s *Server) handleScan(c *gin.Context) {
	items, err := s.Scan()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, QueueListResponse{
		Items:  FromWorkItems(items),
		Counts: QueueCounts(s.queue.Summary()),
	})
}

func (s *Server) handlePair(c *gin.Context) {
	var req PairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "request"})
		return
	}
	applied, err := s.Pair(req.Pairs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PairResponse{Applied: applied})
}

func (s *Server) handleStartRun(c *gin.Context) {
	op, err := workflow.ParseOperation(c.Param("operation"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := s.Start(op); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, s.Status())
}

func (s *Server) handleCurrentRun(c *gin.Context) {
	c.JSON(http.StatusOK, s.Status())
}

func (s *Server) handleStop(c *gin.Context) {
	stopped := s.queue.RequestStop()
	if stopped == nil {
		stopped = []string{}
	}
	c.JSON(http.StatusAccepted, StopResponse{Stopped: stopped})
}

func (s *Server) handleReset(c *gin.Context) {
	reverted, err := s.ResetQueue()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ResetResponse{Reverted: reverted})
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), ErrorResponse{Error: err.Error(), Kind: workflow.Kind(err)})
}

func statusFor(err error) int {
	var cfgErr *workflow.ConfigurationError
	switch {
	case errors.Is(err, ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrUnknownOperation), errors.Is(err, queue.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrQueueEmpty), errors.Is(err, workflow.ErrNothingToProcess):
		return http.StatusUnprocessableEntity
	case errors.As(err, &cfgErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
