package workflow

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kavesh2000/Onitticketingsystem/internal/application/dispatcher"
	"github.com/Kavesh2000/Onitticketingsystem/internal/application/port"
	"github.com/Kavesh2000/Onitticketingsystem/internal/domain/entity"
	"github.com/Kavesh2000/Onitticketingsystem/internal/domain/event"
	domainwf "github.com/Kavesh2000/Onitticketingsystem/internal/domain/workflow"
)

// engineImpl is the concrete implementation of Engine
type engineImpl struct {
	workflowRepo port.WorkflowRepository
	auditRepo    port.AuditRepository
	txManager    port.TransactionManager
	dispatcher   dispatcher.Dispatcher
	logger       *zap.Logger

	defsMu      sync.RWMutex
	definitions map[string]entity.WorkflowDefinition

	// Per-workflow serialization: approve/reject/resubmit are
	// read-modify-write and a lost update would corrupt currentStep
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher used to notify business-object
// collaborators of transitions
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	workflowRepo port.WorkflowRepository,
	auditRepo port.AuditRepository,
	txManager port.TransactionManager,
	logger *zap.Logger,
	opts ...EngineOption,
) Engine {
	e := &engineImpl{
		workflowRepo: workflowRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		logger:       logger,
		definitions:  make(map[string]entity.WorkflowDefinition),
		locks:        make(map[string]*sync.Mutex),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegisterDefinition installs the approval sequence for a module
func (e *engineImpl) RegisterDefinition(def entity.WorkflowDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	e.defsMu.Lock()
	defer e.defsMu.Unlock()

	if _, exists := e.definitions[def.ModuleName]; exists {
		return fmt.Errorf("workflow definition for module %q already registered", def.ModuleName)
	}

	// Copy the step slice so later caller mutation cannot leak in
	steps := make([]entity.StepTemplate, len(def.Steps))
	copy(steps, def.Steps)
	def.Steps = steps

	e.definitions[def.ModuleName] = def
	e.logger.Info("Workflow definition registered",
		zap.String("module", def.ModuleName),
		zap.Int("steps", len(def.Steps)))
	return nil
}

// CreateWorkflow builds a new instance from the module's definition
func (e *engineImpl) CreateWorkflow(ctx context.Context, requestID, moduleName, data, requestorEmail string) (*entity.WorkflowInstance, error) {
	e.defsMu.RLock()
	def, ok := e.definitions[moduleName]
	e.defsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no workflow definition registered for module %q", moduleName)
	}

	now := time.Now()
	wf := &entity.WorkflowInstance{
		ID:             generateWorkflowID(),
		RequestID:      requestID,
		ModuleName:     moduleName,
		Data:           data,
		RequestorEmail: requestorEmail,
		Status:         entity.WorkflowPending,
		CurrentStep:    0,
		Steps:          make([]entity.Step, len(def.Steps)),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for i, tpl := range def.Steps {
		status := entity.StepAwaiting
		if i == 0 {
			status = entity.StepPending
		}
		wf.Steps[i] = entity.Step{
			StepTemplate: tpl,
			StepIndex:    i,
			Status:       status,
		}
	}

	entry := e.newAuditEntry(entity.AuditWorkflowCreated, requestID, moduleName, requestorEmail, "Workflow created")

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.auditRepo.Append(txCtx, entry); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}
		if err := e.workflowRepo.Create(txCtx, wf); err != nil {
			return fmt.Errorf("create workflow: %w", err)
		}
		return nil
	})
	if err != nil {
		e.logger.Error("Failed to create workflow",
			zap.String("request_id", requestID),
			zap.String("module", moduleName),
			zap.Error(err))
		return nil, err
	}

	e.logger.Info("Workflow created",
		zap.String("workflow_id", wf.ID),
		zap.String("request_id", requestID),
		zap.String("module", moduleName),
		zap.Int("steps", len(wf.Steps)))

	e.emit(ctx, event.TypeWorkflowCreated, wf, nil)
	return wf.Clone(), nil
}

// ApproveStep approves the current step and advances the workflow
func (e *engineImpl) ApproveStep(ctx context.Context, workflowID, approverEmail, approverRole, approverDept, comments string) (*entity.WorkflowInstance, error) {
	unlock := e.lockWorkflow(workflowID)
	defer unlock()

	wf, err := e.loadWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	step := wf.CurrentStepRef()
	if step == nil {
		return nil, fmt.Errorf("%w: workflow %s has no current step", domainwf.ErrInvalidState, workflowID)
	}
	if step.Role != approverRole {
		return nil, fmt.Errorf("%w: only %s can approve step %d", domainwf.ErrForbidden, step.Role, wf.CurrentStep)
	}
	if step.Department != "" && step.Department != approverDept {
		return nil, fmt.Errorf("%w: only %s department can approve step %d", domainwf.ErrForbidden, step.Department, wf.CurrentStep)
	}
	if step.Status != entity.StepPending {
		return nil, fmt.Errorf("%w: step %d is not pending approval", domainwf.ErrInvalidState, wf.CurrentStep)
	}

	machine := domainwf.BuildApprovalStateMachine(domainwf.State(wf.Status))
	trigger := domainwf.TriggerAdvance
	if wf.CurrentStep == len(wf.Steps)-1 {
		trigger = domainwf.TriggerComplete
	}
	if err := machine.Fire(trigger); err != nil {
		return nil, err
	}

	now := time.Now()
	step.Status = entity.StepApproved
	step.ApprovedAt = &now
	step.ApprovedBy = approverEmail
	step.ApproverDept = approverDept

	entries := []*entity.AuditEntry{
		e.newAuditEntry(entity.AuditStepApproved, wf.RequestID, wf.ModuleName, approverEmail,
			fmt.Sprintf("Step %d (%s) approved. %s", wf.CurrentStep, step.StepID, comments)),
	}

	wf.CurrentStep++
	wf.Status = entity.WorkflowStatus(machine.State())
	if wf.CurrentStep >= len(wf.Steps) {
		entries = append(entries,
			e.newAuditEntry(entity.AuditWorkflowApproved, wf.RequestID, wf.ModuleName, approverEmail, "Workflow fully approved"))
	} else {
		wf.Steps[wf.CurrentStep].Status = entity.StepPending
	}
	wf.UpdatedAt = now

	if err := e.persist(ctx, wf, entries); err != nil {
		e.logger.Error("Failed to approve step",
			zap.String("workflow_id", workflowID),
			zap.String("approver", approverEmail),
			zap.Error(err))
		return nil, err
	}

	e.logger.Info("Step approved",
		zap.String("workflow_id", workflowID),
		zap.String("approver", approverEmail),
		zap.String("status", wf.Status.String()),
		zap.Int("current_step", wf.CurrentStep))

	e.emit(ctx, event.TypeStepApproved, wf, map[string]interface{}{"approver": approverEmail})
	if wf.Status == entity.WorkflowApproved {
		e.evictLock(workflowID)
		e.emit(ctx, event.TypeWorkflowApproved, wf, map[string]interface{}{"approver": approverEmail})
	}
	return wf.Clone(), nil
}

// RejectStep rejects the workflow at the current step
func (e *engineImpl) RejectStep(ctx context.Context, workflowID, rejectorEmail, rejectorRole, rejectorDept, rejectionReason string) (*entity.WorkflowInstance, error) {
	unlock := e.lockWorkflow(workflowID)
	defer unlock()

	wf, err := e.loadWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	step := wf.CurrentStepRef()
	if step == nil {
		return nil, fmt.Errorf("%w: workflow %s has no current step", domainwf.ErrInvalidState, workflowID)
	}
	if step.Role != rejectorRole {
		return nil, fmt.Errorf("%w: only %s can reject at step %d", domainwf.ErrForbidden, step.Role, wf.CurrentStep)
	}
	if step.Department != "" && step.Department != rejectorDept {
		return nil, fmt.Errorf("%w: only %s department can reject at step %d", domainwf.ErrForbidden, step.Department, wf.CurrentStep)
	}
	if step.Status != entity.StepPending {
		return nil, fmt.Errorf("%w: step %d is not pending approval", domainwf.ErrInvalidState, wf.CurrentStep)
	}

	machine := domainwf.BuildApprovalStateMachine(domainwf.State(wf.Status))
	if err := machine.Fire(domainwf.TriggerReject); err != nil {
		return nil, err
	}

	now := time.Now()
	step.Status = entity.StepRejected
	step.RejectionReason = rejectionReason
	step.RejectedAt = &now
	step.RejectedBy = rejectorEmail

	// The current step pointer stays at the rejection point; steps beyond
	// it remain awaiting
	wf.Status = entity.WorkflowStatus(machine.State())
	wf.UpdatedAt = now

	entries := []*entity.AuditEntry{
		e.newAuditEntry(entity.AuditWorkflowRejected, wf.RequestID, wf.ModuleName, rejectorEmail,
			fmt.Sprintf("Rejected at step %d (%s). Reason: %s", wf.CurrentStep, step.StepID, rejectionReason)),
	}

	if err := e.persist(ctx, wf, entries); err != nil {
		e.logger.Error("Failed to reject step",
			zap.String("workflow_id", workflowID),
			zap.String("rejector", rejectorEmail),
			zap.Error(err))
		return nil, err
	}

	e.logger.Info("Workflow rejected",
		zap.String("workflow_id", workflowID),
		zap.String("rejector", rejectorEmail),
		zap.Int("step", wf.CurrentStep),
		zap.String("reason", rejectionReason))

	e.emit(ctx, event.TypeWorkflowRejected, wf, map[string]interface{}{
		"rejector": rejectorEmail,
		"reason":   rejectionReason,
	})
	return wf.Clone(), nil
}

// CanResubmit reports whether the workflow exists and is rejected
func (e *engineImpl) CanResubmit(ctx context.Context, workflowID string) bool {
	wf, err := e.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		e.logger.Error("Failed to load workflow for resubmit check",
			zap.String("workflow_id", workflowID),
			zap.Error(err))
		return false
	}
	return wf != nil && wf.Status == entity.WorkflowRejected
}

// ResubmitWorkflow resets a rejected workflow to step 0
func (e *engineImpl) ResubmitWorkflow(ctx context.Context, workflowID, submitterEmail string) (*entity.WorkflowInstance, error) {
	unlock := e.lockWorkflow(workflowID)
	defer unlock()

	wf, err := e.loadWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf.Status != entity.WorkflowRejected {
		return nil, fmt.Errorf("%w: workflow %s cannot be resubmitted", domainwf.ErrInvalidState, workflowID)
	}

	machine := domainwf.BuildApprovalStateMachine(domainwf.State(wf.Status))
	if err := machine.Fire(domainwf.TriggerResubmit); err != nil {
		return nil, err
	}

	now := time.Now()
	wf.Status = entity.WorkflowStatus(machine.State())
	wf.CurrentStep = 0
	for i := range wf.Steps {
		status := entity.StepAwaiting
		if i == 0 {
			status = entity.StepPending
		}
		wf.Steps[i] = entity.Step{
			StepTemplate: wf.Steps[i].StepTemplate,
			StepIndex:    i,
			Status:       status,
		}
	}
	wf.UpdatedAt = now

	entries := []*entity.AuditEntry{
		e.newAuditEntry(entity.AuditWorkflowResubmitted, wf.RequestID, wf.ModuleName, submitterEmail,
			"Workflow resubmitted after rejection"),
	}

	if err := e.persist(ctx, wf, entries); err != nil {
		e.logger.Error("Failed to resubmit workflow",
			zap.String("workflow_id", workflowID),
			zap.String("submitter", submitterEmail),
			zap.Error(err))
		return nil, err
	}

	e.logger.Info("Workflow resubmitted",
		zap.String("workflow_id", workflowID),
		zap.String("submitter", submitterEmail))

	e.emit(ctx, event.TypeWorkflowResubmitted, wf, map[string]interface{}{"submitter": submitterEmail})
	return wf.Clone(), nil
}

// GetNextApprover returns the current step's routing hint
func (e *engineImpl) GetNextApprover(ctx context.Context, workflowID string) (*entity.NextApprover, error) {
	wf, err := e.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf == nil || wf.Status.IsTerminal() {
		return nil, nil
	}

	step := wf.CurrentStepRef()
	if step == nil {
		return nil, nil
	}
	return &entity.NextApprover{
		StepID:   step.StepID,
		Role:     step.Role,
		Approver: step.ApproverHint,
	}, nil
}

// GetApprovalProgress returns a redacted progress snapshot
func (e *engineImpl) GetApprovalProgress(ctx context.Context, workflowID string) (*entity.ApprovalProgress, error) {
	wf, err := e.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, nil
	}

	progress := &entity.ApprovalProgress{
		WorkflowID:     wf.ID,
		RequestID:      wf.RequestID,
		Status:         wf.Status,
		TotalSteps:     len(wf.Steps),
		CompletedSteps: wf.CompletedSteps(),
		CurrentStep:    wf.CurrentStep,
		Steps:          make([]entity.StepSummary, len(wf.Steps)),
	}
	for i, s := range wf.Steps {
		progress.Steps[i] = summarizeStep(s)
	}
	if step := wf.CurrentStepRef(); step != nil {
		info := summarizeStep(*step)
		progress.CurrentStepInfo = &info
	}
	return progress, nil
}

// GetPendingApprovalsForRole returns active instances waiting on the role
func (e *engineImpl) GetPendingApprovalsForRole(ctx context.Context, role string) ([]*entity.WorkflowInstance, error) {
	active, err := e.workflowRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	// O(n) over the active set; an index by role would be needed at
	// larger instance volumes
	var pending []*entity.WorkflowInstance
	for _, wf := range active {
		step := wf.CurrentStepRef()
		if step != nil && step.Role == role && step.Status == entity.StepPending {
			pending = append(pending, wf.Clone())
		}
	}
	return pending, nil
}

// GetAuditTrail returns the audit entries for a request
func (e *engineImpl) GetAuditTrail(ctx context.Context, requestID string) ([]*entity.AuditEntry, error) {
	return e.auditRepo.ListByRequestID(ctx, requestID)
}

// loadWorkflow fetches an instance, mapping absence to ErrNotFound
func (e *engineImpl) loadWorkflow(ctx context.Context, workflowID string) (*entity.WorkflowInstance, error) {
	wf, err := e.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", workflowID, err)
	}
	if wf == nil {
		return nil, fmt.Errorf("%w: %s", domainwf.ErrNotFound, workflowID)
	}
	return wf, nil
}

// persist writes the audit entries and the updated instance as one
// transaction. Entries go first so a transition can never commit without
// its audit record.
func (e *engineImpl) persist(ctx context.Context, wf *entity.WorkflowInstance, entries []*entity.AuditEntry) error {
	return e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, entry := range entries {
			if err := e.auditRepo.Append(txCtx, entry); err != nil {
				return fmt.Errorf("append audit entry: %w", err)
			}
		}
		if err := e.workflowRepo.Update(txCtx, wf); err != nil {
			return fmt.Errorf("update workflow: %w", err)
		}
		return nil
	})
}

// emit dispatches a workflow event asynchronously after commit
func (e *engineImpl) emit(ctx context.Context, eventType event.Type, wf *entity.WorkflowInstance, payload map[string]interface{}) {
	if e.dispatcher == nil {
		return
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["status"] = wf.Status.String()
	e.dispatcher.DispatchAsync(ctx, event.NewEvent(eventType, wf.ID, wf.RequestID, wf.ModuleName, payload))
}

// lockWorkflow serializes mutations per workflow id
func (e *engineImpl) lockWorkflow(workflowID string) func() {
	e.locksMu.Lock()
	mu, ok := e.locks[workflowID]
	if !ok {
		mu = &sync.Mutex{}
		e.locks[workflowID] = mu
	}
	e.locksMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// evictLock drops the mutex for a fully approved workflow so the map does
// not grow with every instance ever created. Rejected instances keep theirs:
// resubmission still mutates them. A late caller racing the eviction gets a
// fresh mutex, but every mutation re-validates against the terminal status
// before writing.
func (e *engineImpl) evictLock(workflowID string) {
	e.locksMu.Lock()
	delete(e.locks, workflowID)
	e.locksMu.Unlock()
}

func (e *engineImpl) newAuditEntry(action entity.AuditAction, requestID, moduleName, actor, details string) *entity.AuditEntry {
	return &entity.AuditEntry{
		ID:         uuid.NewString(),
		Timestamp:  time.Now(),
		Action:     action,
		RequestID:  requestID,
		ModuleName: moduleName,
		Actor:      actor,
		Details:    details,
	}
}

// generateWorkflowID creates a time-based id with a random base36 suffix,
// unique enough without global coordination
func generateWorkflowID() string {
	var b [8]byte
	rand.Read(b[:])
	suffix := strconv.FormatUint(binary.BigEndian.Uint64(b[:]), 36)
	if len(suffix) > 9 {
		suffix = suffix[:9]
	}
	return fmt.Sprintf("WF-%d-%s", time.Now().UnixMilli(), suffix)
}

func summarizeStep(s entity.Step) entity.StepSummary {
	return entity.StepSummary{
		StepID:          s.StepID,
		Role:            s.Role,
		Status:          s.Status,
		ApprovedBy:      s.ApprovedBy,
		ApprovedAt:      s.ApprovedAt,
		RejectionReason: s.RejectionReason,
	}
}
