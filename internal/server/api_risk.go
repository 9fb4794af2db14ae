package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/riskops/internal/pagination"
	"github.com/mbd888/riskops/internal/risk"
	"github.com/mbd888/riskops/internal/runbooks"
	"github.com/mbd888/riskops/internal/validation"
)

const maxHistoryLimit = 100

// GET /api/risk/company/:symbol
func (s *Server) companyRiskHandler(c *gin.Context) {
	symbol := validation.SanitizeSymbol(c.Param("symbol"))
	ctx := c.Request.Context()

	sigs := s.comp.Signals.Company(ctx, symbol)
	score := s.comp.Scores.Assess(ctx, risk.KindCompany, symbol, sigs)

	c.JSON(http.StatusOK, gin.H{
		"symbol":  symbol,
		"score":   score,
		"signals": sigs,
	})
}

// GET /api/risk/industry/:industry
func (s *Server) industryRiskHandler(c *gin.Context) {
	industry := strings.ToLower(strings.TrimSpace(c.Param("industry")))
	ctx := c.Request.Context()

	sigs := s.comp.Signals.Industry(ctx, industry)
	score := s.comp.Scores.Assess(ctx, risk.KindIndustry, industry, sigs)

	c.JSON(http.StatusOK, gin.H{
		"industry": industry,
		"score":    score,
		"signals":  sigs,
	})
}

// GET /api/risk/intelligence/:symbol?company=Apple
func (s *Server) intelligenceHandler(c *gin.Context) {
	symbol := validation.SanitizeSymbol(c.Param("symbol"))
	company := validation.SanitizeString(c.DefaultQuery("company", symbol), 100)
	if company == "" {
		company = symbol
	}
	c.JSON(http.StatusOK, s.comp.Signals.Intelligence(c.Request.Context(), company, symbol))
}

type portfolioRequest struct {
	PortfolioID string         `json:"portfolio_id"`
	Holdings    []risk.Holding `json:"holdings" binding:"required,min=1,dive"`
}

// POST /api/risk/portfolio
func (s *Server) portfolioRiskHandler(c *gin.Context) {
	var req portfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "holdings must contain at least one position with a ticker",
		})
		return
	}
	if req.PortfolioID != "" && !validation.IsValidIdent(req.PortfolioID) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "invalid portfolio_id",
		})
		return
	}
	for i := range req.Holdings {
		req.Holdings[i].Ticker = validation.SanitizeSymbol(req.Holdings[i].Ticker)
		if !validation.IsValidSymbol(req.Holdings[i].Ticker) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "invalid ticker: " + req.Holdings[i].Ticker,
			})
			return
		}
	}

	subject := req.PortfolioID
	if subject == "" {
		subject = "adhoc"
	}
	c.JSON(http.StatusOK, s.comp.Scores.AssessPortfolio(c.Request.Context(), subject, req.Holdings))
}

// GET /api/risk/assessments/:subject?limit=20&cursor=...
func (s *Server) assessmentsHandler(c *gin.Context) {
	subject := c.Param("subject")
	limit := parseLimit(c, risk.DefaultHistoryLimit)

	history, next, err := s.comp.Scores.History(c.Request.Context(), subject, limit, c.Query("cursor"))
	if errors.Is(err, pagination.ErrInvalidCursor) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "invalid cursor",
		})
		return
	}
	if err != nil {
		logger(c).Error("failed to load assessments", "subject", subject, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load assessments",
		})
		return
	}
	if history == nil {
		history = []*risk.Assessment{}
	}

	resp := gin.H{
		"subject":     subject,
		"assessments": history,
		"count":       len(history),
		"has_more":    next != "",
	}
	if next != "" {
		resp["next_cursor"] = next
	}
	c.JSON(http.StatusOK, resp)
}

// GET /api/runbooks
func (s *Server) listRunbooksHandler(c *gin.Context) {
	names := runbooks.List()
	c.JSON(http.StatusOK, gin.H{"runbooks": names, "count": len(names)})
}

// GET /api/runbooks/:scenario
func (s *Server) getRunbookHandler(c *gin.Context) {
	rb := runbooks.Get(c.Param("scenario"))
	if !rb.Known() {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "not_found",
			"message":   "No runbook for this scenario",
			"available": runbooks.List(),
		})
		return
	}
	c.JSON(http.StatusOK, rb)
}

// parseLimit reads ?limit=, clamped to [1, maxHistoryLimit].
func parseLimit(c *gin.Context, def int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit < 1 {
		return def
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}
