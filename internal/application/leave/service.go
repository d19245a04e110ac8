package leave

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Kavesh2000/Onitticketingsystem/internal/application/dispatcher"
	"github.com/Kavesh2000/Onitticketingsystem/internal/application/port"
	wf "github.com/Kavesh2000/Onitticketingsystem/internal/application/workflow"
	"github.com/Kavesh2000/Onitticketingsystem/internal/domain/entity"
	"github.com/Kavesh2000/Onitticketingsystem/internal/domain/event"
)

// ModuleName is the workflow module identifier for leave requests
const ModuleName = "leave"

// Definition is the two-stage leave approval sequence: the applicant's
// head of department first, then an administrator.
func Definition() entity.WorkflowDefinition {
	return entity.WorkflowDefinition{
		ModuleName: ModuleName,
		Steps: []entity.StepTemplate{
			{StepID: "hod-review", Role: "HOD"},
			{StepID: "admin-review", Role: "Admin"},
		},
	}
}

// SubmitRequest carries the fields needed to open a leave request
type SubmitRequest struct {
	Type          string  `json:"type"`
	Days          float64 `json:"days"`
	Email         string  `json:"email"`
	ApplicantName string  `json:"applicant_name"`
	Department    string  `json:"department"`
}

// Service owns the leave business object. The gating workflow is run by
// the engine; the service reacts to its terminal transitions.
type Service struct {
	engine     wf.Engine
	requests   port.LeaveRequestRepository
	balances   port.LeaveBalanceRepository
	recomputer *Recomputer
	txManager  port.TransactionManager
	logger     *zap.Logger
}

// NewService creates a leave service
func NewService(
	engine wf.Engine,
	requests port.LeaveRequestRepository,
	balances port.LeaveBalanceRepository,
	recomputer *Recomputer,
	txManager port.TransactionManager,
	logger *zap.Logger,
) *Service {
	return &Service{
		engine:     engine,
		requests:   requests,
		balances:   balances,
		recomputer: recomputer,
		txManager:  txManager,
		logger:     logger,
	}
}

// Submit stores a new leave request and opens its approval workflow
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*entity.LeaveRequest, error) {
	if req.Email == "" {
		return nil, fmt.Errorf("leave request has no applicant email")
	}
	if req.Days <= 0 {
		return nil, fmt.Errorf("leave request days must be positive, got %v", req.Days)
	}

	s.warnIfOverdrawn(ctx, req)

	now := time.Now()
	leave := &entity.LeaveRequest{
		ID:            generateLeaveID(),
		Type:          req.Type,
		Days:          req.Days,
		Email:         strings.ToLower(req.Email),
		ApplicantName: req.ApplicantName,
		Department:    req.Department,
		Status:        entity.LeavePending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal leave payload: %w", err)
	}

	// The leave row, its workflow, and the link commit together: a failed
	// workflow creation must not leave behind a pending request nothing
	// can ever approve
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requests.Create(txCtx, leave); err != nil {
			return fmt.Errorf("create leave request: %w", err)
		}

		instance, err := s.engine.CreateWorkflow(txCtx, leave.ID, ModuleName, string(data), leave.Email)
		if err != nil {
			return fmt.Errorf("open approval workflow: %w", err)
		}

		leave.WorkflowID = instance.ID
		leave.UpdatedAt = time.Now()
		if err := s.requests.Update(txCtx, leave); err != nil {
			return fmt.Errorf("link workflow to leave request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Leave request submitted",
		zap.String("leave_id", leave.ID),
		zap.String("workflow_id", leave.WorkflowID),
		zap.String("applicant", leave.Email),
		zap.String("type", leave.Type),
		zap.Float64("days", leave.Days))
	return leave, nil
}

// Get returns a leave request by id, (nil, nil) when unknown
func (s *Service) Get(ctx context.Context, id string) (*entity.LeaveRequest, error) {
	return s.requests.GetByID(ctx, id)
}

// RegisterEventHandlers subscribes the service to workflow transitions so
// the leave record follows its gating workflow
func (s *Service) RegisterEventHandlers(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeWorkflowApproved, "leave-approved", s.onWorkflowApproved)
	d.SubscribeNamed(event.TypeWorkflowRejected, "leave-rejected", s.onWorkflowRejected)
	d.SubscribeNamed(event.TypeWorkflowResubmitted, "leave-resubmitted", s.onWorkflowResubmitted)
}

func (s *Service) onWorkflowApproved(ctx context.Context, evt *event.Event) error {
	leave, err := s.leaveForEvent(ctx, evt)
	if err != nil || leave == nil {
		return err
	}

	leave.Status = entity.LeaveApproved
	leave.ReturnedToApplicant = false
	leave.UpdatedAt = time.Now()
	if err := s.requests.Update(ctx, leave); err != nil {
		return fmt.Errorf("mark leave %s approved: %w", leave.ID, err)
	}

	// The approved request now counts against the applicant's allowance
	if _, err := s.recomputer.Recompute(ctx, leave.Email); err != nil {
		return fmt.Errorf("recompute balance for %s: %w", leave.Email, err)
	}
	return nil
}

func (s *Service) onWorkflowRejected(ctx context.Context, evt *event.Event) error {
	leave, err := s.leaveForEvent(ctx, evt)
	if err != nil || leave == nil {
		return err
	}

	leave.Status = entity.LeaveRejected
	leave.ReturnedToApplicant = true
	leave.UpdatedAt = time.Now()
	if err := s.requests.Update(ctx, leave); err != nil {
		return fmt.Errorf("mark leave %s rejected: %w", leave.ID, err)
	}
	return nil
}

func (s *Service) onWorkflowResubmitted(ctx context.Context, evt *event.Event) error {
	leave, err := s.leaveForEvent(ctx, evt)
	if err != nil || leave == nil {
		return err
	}

	leave.Status = entity.LeavePending
	leave.ReturnedToApplicant = false
	leave.UpdatedAt = time.Now()
	if err := s.requests.Update(ctx, leave); err != nil {
		return fmt.Errorf("mark leave %s pending: %w", leave.ID, err)
	}
	return nil
}

// leaveForEvent resolves the leave record behind a workflow event.
// Events for other modules are ignored.
func (s *Service) leaveForEvent(ctx context.Context, evt *event.Event) (*entity.LeaveRequest, error) {
	if evt.ModuleName != ModuleName {
		return nil, nil
	}
	leave, err := s.requests.GetByID(ctx, evt.RequestID)
	if err != nil {
		return nil, fmt.Errorf("load leave request %s: %w", evt.RequestID, err)
	}
	if leave == nil {
		s.logger.Warn("Workflow event references unknown leave request",
			zap.String("request_id", evt.RequestID),
			zap.String("workflow_id", evt.WorkflowID))
		return nil, nil
	}
	return leave, nil
}

// warnIfOverdrawn flags requests exceeding the remaining bucket. The
// submission is still accepted; approvers see the shortfall in the log.
func (s *Service) warnIfOverdrawn(ctx context.Context, req SubmitRequest) {
	bal, err := s.balances.Get(ctx, strings.ToLower(req.Email))
	if err != nil || bal == nil {
		return
	}
	bucket := entity.BucketForLeaveType(req.Type)
	if remaining, ok := bal.Balances[bucket]; ok && req.Days > remaining {
		s.logger.Warn("Leave request exceeds remaining balance",
			zap.String("applicant", req.Email),
			zap.String("bucket", bucket),
			zap.Float64("requested", req.Days),
			zap.Float64("remaining", remaining))
	}
}

// generateLeaveID creates an id in the LEAVE-XXXXXXX form
func generateLeaveID() string {
	var b [8]byte
	rand.Read(b[:])
	suffix := strconv.FormatUint(binary.BigEndian.Uint64(b[:]), 36)
	if len(suffix) > 7 {
		suffix = suffix[:7]
	}
	return "LEAVE-" + strings.ToUpper(suffix)
}
