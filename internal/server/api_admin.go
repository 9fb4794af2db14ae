package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/riskops/internal/access"
	"github.com/mbd888/riskops/internal/audit"
	"github.com/mbd888/riskops/internal/guardrail"
	"github.com/mbd888/riskops/internal/logging"
	"github.com/mbd888/riskops/internal/oms"
	"github.com/mbd888/riskops/internal/ratelimit"
	"github.com/mbd888/riskops/internal/validation"
)

const ctxUserID = "userID"

func logger(c *gin.Context) *slog.Logger {
	return logging.L(c.Request.Context())
}

// callerMiddleware requires an X-User-ID header naming the caller.
// Identity is asserted by the fronting gateway; roles come from the directory.
func (s *Server) callerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(ratelimit.UserHeader)
		if userID == "" || !validation.IsValidIdent(userID) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "X-User-ID header is required",
			})
			return
		}
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.comp.Directory.RoleOf(c.GetString(ctxUserID)) != access.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Administrator role required",
			})
			return
		}
		c.Next()
	}
}

func validationFailed(c *gin.Context, errs validation.ValidationErrors) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "validation_failed",
		"message": errs.Error(),
		"fields":  errs,
	})
}

// GET /api/oms/status
func (s *Server) haltStatusHandler(c *gin.Context) {
	st, err := s.comp.OMS.Status(c.Request.Context())
	if err != nil {
		logger(c).Error("failed to fetch halt status", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "oms_unavailable",
			"message": "Order management system is unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, st)
}

type resumeRequest struct {
	TicketID string `json:"ticket_id"`
	Reason   string `json:"reason"`
}

const maxReasonLength = 500

// POST /api/oms/resume
func (s *Server) resumeHandler(c *gin.Context) {
	var req resumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON body",
		})
		return
	}
	req.TicketID = strings.TrimSpace(req.TicketID)
	req.Reason = strings.TrimSpace(req.Reason)
	if errs := validation.Validate(
		validation.Required("ticket_id", req.TicketID),
		validation.ValidIdent("ticket_id", req.TicketID),
		validation.MinLength("reason", req.Reason, guardrail.MinReasonLength),
		validation.MaxLength("reason", req.Reason, maxReasonLength),
	); len(errs) > 0 {
		validationFailed(c, errs)
		return
	}

	ctx := c.Request.Context()
	userID := c.GetString(ctxUserID)
	details := map[string]any{"ticket_id": req.TicketID, "reason": req.Reason}

	if !s.comp.Policy.CanExecute(userID, guardrail.ActionResumeTrading) {
		details["outcome"] = "unauthorized"
		s.comp.Audit.Record(ctx, userID, guardrail.ActionResumeTrading, details, audit.ResultFailed)
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": "Resuming trading requires RISK or ADMIN role",
		})
		return
	}

	halt, err := s.comp.OMS.Resume(ctx, req.TicketID, userID, req.Reason)
	if err != nil {
		details["error"] = err.Error()
		s.comp.Audit.Record(ctx, userID, guardrail.ActionResumeTrading, details, audit.ResultFailed)
		switch {
		case errors.Is(err, oms.ErrUnknownTicket):
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Unknown halt ticket"})
		case errors.Is(err, oms.ErrNotHalted):
			c.JSON(http.StatusConflict, gin.H{"error": "not_halted", "message": "Ticket is not currently halted"})
		default:
			logger(c).Error("resume failed", "ticket_id", req.TicketID, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "oms_unavailable", "message": "Order management system is unavailable"})
		}
		return
	}

	s.comp.Audit.Record(ctx, userID, guardrail.ActionResumeTrading, details, audit.ResultSuccess)
	logger(c).Info("trading resumed", "ticket_id", halt.TicketID, "user_id", userID)
	c.JSON(http.StatusOK, halt)
}

type upsertUserRequest struct {
	Role      string   `json:"role"`
	Resources []string `json:"resources"`
}

// PUT /api/admin/users/:id
func (s *Server) upsertUserHandler(c *gin.Context) {
	var req upsertUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON body",
		})
		return
	}
	checks := []func() *validation.ValidationError{validation.Required("role", req.Role)}
	for i, r := range req.Resources {
		checks = append(checks, validation.Required(fmt.Sprintf("resources[%d]", i), r))
		checks = append(checks, validation.MaxLength(fmt.Sprintf("resources[%d]", i), r, 64))
	}
	if errs := validation.Validate(checks...); len(errs) > 0 {
		validationFailed(c, errs)
		return
	}

	role, err := access.ParseRole(req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_role", "message": err.Error()})
		return
	}

	target := c.Param("id")
	u, err := s.comp.Directory.Upsert(target, role, req.Resources)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	s.comp.Audit.Record(c.Request.Context(), c.GetString(ctxUserID), "update_user", map[string]any{
		"target":    target,
		"role":      string(u.Role),
		"resources": u.Resources,
	}, audit.ResultSuccess)
	c.JSON(http.StatusOK, u)
}

// GET /api/admin/users/:id
func (s *Server) getUserHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.comp.Directory.Lookup(c.Param("id")))
}

// GET /api/admin/audit?limit=50
func (s *Server) auditHandler(c *gin.Context) {
	entries, err := s.comp.Audit.Recent(c.Request.Context(), parseLimit(c, 50))
	if err != nil {
		logger(c).Error("failed to read audit log", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to read audit log",
		})
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}
