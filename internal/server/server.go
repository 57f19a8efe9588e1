package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/acmecorp/quote-workflow/internal/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server exposes a read-only HTTP view over stored processing results and
// the activity timeline. It has no processing endpoints: emails enter the
// system only through the inbox batch.
type Server struct {
	results  *repository.ResultRepository
	activity *repository.ActivityRepository
	logger   *zap.Logger
}

// New creates a new read-only API server
func New(results *repository.ResultRepository, activity *repository.ActivityRepository, logger *zap.Logger) *Server {
	return &Server{
		results:  results,
		activity: activity,
		logger:   logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)

	api := router.Group("/api/v1")
	{
		api.GET("/quotes", s.handleListQuotes)
		api.GET("/quotes/:id", s.handleGetQuote)
		api.GET("/events/:id", s.handleGetEvent)
		api.GET("/activity", s.handleActivity)
		api.GET("/activity/stats", s.handleActivityStats)
	}

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// quoteSummary is the list-view shape: identifying fields plus the quote
// record itself.
type quoteSummary struct {
	EmailID    string          `json:"email_id"`
	Status     string          `json:"status"`
	Total      float64         `json:"total"`
	Currency   string          `json:"currency"`
	SourceFile string          `json:"source_file"`
	Quote      json.RawMessage `json:"quote"`
}

func (s *Server) handleListQuotes(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	results, err := s.results.List(c.Request.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list quotes", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list quotes"})
		return
	}

	summaries := make([]quoteSummary, 0, len(results))
	for _, result := range results {
		summaries = append(summaries, quoteSummary{
			EmailID:    result.EmailID,
			Status:     result.Status,
			Total:      result.Total,
			Currency:   result.Currency,
			SourceFile: result.SourceFile,
			Quote:      result.QuoteJSON,
		})
	}

	c.JSON(http.StatusOK, gin.H{"quotes": summaries, "count": len(summaries)})
}

func (s *Server) handleGetQuote(c *gin.Context) {
	result, err := s.lookup(c)
	if result == nil || err != nil {
		return
	}
	c.Data(http.StatusOK, "application/json", result.QuoteJSON)
}

func (s *Server) handleGetEvent(c *gin.Context) {
	result, err := s.lookup(c)
	if result == nil || err != nil {
		return
	}
	c.Data(http.StatusOK, "application/json", result.EventJSON)
}

// lookup fetches the result for the :id parameter, writing the error
// response itself when the record is missing or the query fails.
func (s *Server) lookup(c *gin.Context) (*repository.Result, error) {
	emailID := c.Param("id")

	result, err := s.results.GetByID(c.Request.Context(), emailID)
	if err != nil {
		s.logger.Error("Failed to get result", zap.String("email_id", emailID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return nil, err
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "email_id": emailID})
		return nil, nil
	}
	return result, nil
}

func (s *Server) handleActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	var entries []repository.ActivityEntry
	var err error

	switch {
	case c.Query("email_id") != "":
		entries, err = s.activity.ByEmail(c.Request.Context(), c.Query("email_id"))
	case c.Query("action") != "":
		entries, err = s.activity.ByAction(c.Request.Context(), c.Query("action"))
	default:
		entries, err = s.activity.Recent(c.Request.Context(), limit)
	}

	if err != nil {
		s.logger.Error("Failed to query activity", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query activity"})
		return
	}

	if entries == nil {
		entries = []repository.ActivityEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"activity": entries, "count": len(entries)})
}

func (s *Server) handleActivityStats(c *gin.Context) {
	stats, err := s.activity.Stats(c.Request.Context())
	if err != nil {
		s.logger.Error("Failed to aggregate activity stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to aggregate stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
