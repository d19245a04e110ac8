package http

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kavesh2000/Onitticketingsystem/internal/application/leave"
	appwf "github.com/Kavesh2000/Onitticketingsystem/internal/application/workflow"
	domainwf "github.com/Kavesh2000/Onitticketingsystem/internal/domain/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine     appwf.Engine
	leave      *leave.Service
	recomputer *leave.Recomputer
	reporter   *leave.ReportExporter
	reportDir  string
	logger     *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	engine appwf.Engine,
	leaveService *leave.Service,
	recomputer *leave.Recomputer,
	reporter *leave.ReportExporter,
	reportDir string,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		engine:     engine,
		leave:      leaveService,
		recomputer: recomputer,
		reporter:   reporter,
		reportDir:  reportDir,
		logger:     logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ApprovalRequest carries the actor identity for an approve call
type ApprovalRequest struct {
	Email      string `json:"email" binding:"required"`
	Role       string `json:"role" binding:"required"`
	Department string `json:"department"`
	Comments   string `json:"comments"`
}

// RejectionRequest carries the actor identity and reason for a reject call
type RejectionRequest struct {
	Email      string `json:"email" binding:"required"`
	Role       string `json:"role" binding:"required"`
	Department string `json:"department"`
	Reason     string `json:"reason" binding:"required"`
}

// ResubmitRequest identifies who resubmits a rejected workflow
type ResubmitRequest struct {
	Email string `json:"email" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// GetProgress handles GET /api/workflows/:id
func (h *Handlers) GetProgress(c *gin.Context) {
	progress, err := h.engine.GetApprovalProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if progress == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "workflow not found"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: progress})
}

// GetNextApprover handles GET /api/workflows/:id/next-approver
func (h *Handlers) GetNextApprover(c *gin.Context) {
	next, err := h.engine.GetNextApprover(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if next == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "no pending step"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: next})
}

// ListPendingForRole handles GET /api/workflows/pending?role=...
func (h *Handlers) ListPendingForRole(c *gin.Context) {
	role := c.Query("role")
	if role == "" {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "role query parameter is required"})
		return
	}

	instances, err := h.engine.GetPendingApprovalsForRole(c.Request.Context(), role)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: instances})
}

// ApproveStep handles POST /api/workflows/:id/approve
func (h *Handlers) ApproveStep(c *gin.Context) {
	var req ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	wf, err := h.engine.ApproveStep(c.Request.Context(), c.Param("id"), req.Email, req.Role, req.Department, req.Comments)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: wf})
}

// RejectStep handles POST /api/workflows/:id/reject
func (h *Handlers) RejectStep(c *gin.Context) {
	var req RejectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	wf, err := h.engine.RejectStep(c.Request.Context(), c.Param("id"), req.Email, req.Role, req.Department, req.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: wf})
}

// ResubmitWorkflow handles POST /api/workflows/:id/resubmit
func (h *Handlers) ResubmitWorkflow(c *gin.Context) {
	var req ResubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	wf, err := h.engine.ResubmitWorkflow(c.Request.Context(), c.Param("id"), req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: wf})
}

// GetAuditTrail handles GET /api/requests/:requestId/audit
func (h *Handlers) GetAuditTrail(c *gin.Context) {
	entries, err := h.engine.GetAuditTrail(c.Request.Context(), c.Param("requestId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: entries})
}

// SubmitLeave handles POST /api/leave/requests
func (h *Handlers) SubmitLeave(c *gin.Context) {
	var req leave.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	created, err := h.leave.Submit(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: created})
}

// GetLeave handles GET /api/leave/requests/:id
func (h *Handlers) GetLeave(c *gin.Context) {
	req, err := h.leave.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if req == nil {
		c.JSON(http.StatusNotFound, Response{Success: false, Error: "leave request not found"})
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// RecomputeBalances handles POST /api/leave/balances/recompute
func (h *Handlers) RecomputeBalances(c *gin.Context) {
	updated, err := h.recomputer.RecomputeAll(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"subjects_updated": updated}})
}

// ExportBalanceReport handles POST /api/leave/balances/report
func (h *Handlers) ExportBalanceReport(c *gin.Context) {
	outputPath := filepath.Join(h.reportDir, fmt.Sprintf("leave_balances_%s.xlsx", time.Now().UTC().Format("20060102_150405")))

	if err := h.reporter.Export(c.Request.Context(), outputPath); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: gin.H{"path": outputPath}})
}

// writeError maps domain errors to HTTP status codes
func (h *Handlers) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domainwf.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domainwf.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domainwf.ErrInvalidState), errors.Is(err, domainwf.ErrInvalidTransition):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(status, Response{Success: false, Error: "internal error"})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}
