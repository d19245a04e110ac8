package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kavesh2000/Onitticketingsystem/internal/domain/entity"
	domainwf "github.com/Kavesh2000/Onitticketingsystem/internal/domain/workflow"
)

// memWorkflowRepo is an in-memory WorkflowRepository
type memWorkflowRepo struct {
	mu        sync.Mutex
	instances map[string]*entity.WorkflowInstance
	failGet   bool
}

func newMemWorkflowRepo() *memWorkflowRepo {
	return &memWorkflowRepo{instances: make(map[string]*entity.WorkflowInstance)}
}

func (r *memWorkflowRepo) Create(_ context.Context, wf *entity.WorkflowInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.instances[wf.ID]; exists {
		return fmt.Errorf("duplicate id %s", wf.ID)
	}
	r.instances[wf.ID] = wf.Clone()
	return nil
}

func (r *memWorkflowRepo) GetByID(_ context.Context, id string) (*entity.WorkflowInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGet {
		return nil, errors.New("storage unavailable")
	}
	wf, ok := r.instances[id]
	if !ok {
		return nil, nil
	}
	return wf.Clone(), nil
}

func (r *memWorkflowRepo) GetByRequestID(_ context.Context, requestID string) ([]*entity.WorkflowInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.WorkflowInstance
	for _, wf := range r.instances {
		if wf.RequestID == requestID {
			out = append(out, wf.Clone())
		}
	}
	return out, nil
}

func (r *memWorkflowRepo) ListActive(_ context.Context) ([]*entity.WorkflowInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.WorkflowInstance
	for _, wf := range r.instances {
		if !wf.Status.IsTerminal() {
			out = append(out, wf.Clone())
		}
	}
	return out, nil
}

func (r *memWorkflowRepo) Update(_ context.Context, wf *entity.WorkflowInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instances[wf.ID]; !ok {
		return fmt.Errorf("workflow %s does not exist", wf.ID)
	}
	r.instances[wf.ID] = wf.Clone()
	return nil
}

// memAuditRepo is an in-memory append-only AuditRepository
type memAuditRepo struct {
	mu      sync.Mutex
	entries []*entity.AuditEntry
}

func (r *memAuditRepo) Append(_ context.Context, entry *entity.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *entry
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *memAuditRepo) ListByRequestID(_ context.Context, requestID string) ([]*entity.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.AuditEntry
	for _, e := range r.entries {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	return out, nil
}

// memTxManager runs the function directly; the fakes have no transactions
type memTxManager struct{}

func (memTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func threeStepDefinition() entity.WorkflowDefinition {
	return entity.WorkflowDefinition{
		ModuleName: "procurement",
		Steps: []entity.StepTemplate{
			{StepID: "manager-review", Role: "Manager", ApproverHint: "Line manager"},
			{StepID: "finance-review", Role: "Finance", Department: "Finance"},
			{StepID: "director-signoff", Role: "Director"},
		},
	}
}

func newTestEngine(t *testing.T) (Engine, *memWorkflowRepo, *memAuditRepo) {
	t.Helper()
	workflowRepo := newMemWorkflowRepo()
	auditRepo := &memAuditRepo{}
	engine := NewEngine(workflowRepo, auditRepo, memTxManager{}, zap.NewNop())
	require.NoError(t, engine.RegisterDefinition(threeStepDefinition()))
	return engine, workflowRepo, auditRepo
}

func TestRegisterDefinition(t *testing.T) {
	engine := NewEngine(newMemWorkflowRepo(), &memAuditRepo{}, memTxManager{}, zap.NewNop())

	require.NoError(t, engine.RegisterDefinition(threeStepDefinition()))

	err := engine.RegisterDefinition(threeStepDefinition())
	assert.Error(t, err, "duplicate registration must fail")

	err = engine.RegisterDefinition(entity.WorkflowDefinition{ModuleName: "empty"})
	assert.Error(t, err, "definition without steps must fail")
}

func TestCreateWorkflow(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	wf, err := engine.CreateWorkflow(ctx, "REQ-1", "procurement", `{"amount":120}`, "alice@example.com")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(wf.ID, "WF-"))
	assert.Equal(t, entity.WorkflowPending, wf.Status)
	assert.Equal(t, 0, wf.CurrentStep)
	require.Len(t, wf.Steps, 3)
	assert.Equal(t, entity.StepPending, wf.Steps[0].Status)
	assert.Equal(t, entity.StepAwaiting, wf.Steps[1].Status)
	assert.Equal(t, entity.StepAwaiting, wf.Steps[2].Status)

	trail, err := engine.GetAuditTrail(ctx, "REQ-1")
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, entity.AuditWorkflowCreated, trail[0].Action)
	assert.Equal(t, "alice@example.com", trail[0].Actor)
}

func TestCreateWorkflowUnknownModule(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.CreateWorkflow(context.Background(), "REQ-1", "nonexistent", "", "alice@example.com")
	assert.Error(t, err)
}

func TestApproveFullSequence(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	wf, err := engine.CreateWorkflow(ctx, "REQ-2", "procurement", "", "alice@example.com")
	require.NoError(t, err)

	wf, err = engine.ApproveStep(ctx, wf.ID, "mgr@example.com", "Manager", "", "looks fine")
	require.NoError(t, err)
	assert.Equal(t, entity.WorkflowInProgress, wf.Status)
	assert.Equal(t, 1, wf.CurrentStep)
	assert.Equal(t, entity.StepApproved, wf.Steps[0].Status)
	assert.Equal(t, "mgr@example.com", wf.Steps[0].ApprovedBy)
	assert.NotNil(t, wf.Steps[0].ApprovedAt)
	assert.Equal(t, entity.StepPending, wf.Steps[1].Status)

	wf, err = engine.ApproveStep(ctx, wf.ID, "fin@example.com", "Finance", "Finance", "")
	require.NoError(t, err)
	assert.Equal(t, entity.WorkflowInProgress, wf.Status)
	assert.Equal(t, 2, wf.CurrentStep)

	wf, err = engine.ApproveStep(ctx, wf.ID, "dir@example.com", "Director", "", "approved")
	require.NoError(t, err)
	assert.Equal(t, entity.WorkflowApproved, wf.Status)
	assert.Equal(t, 3, wf.CurrentStep)
	for _, step := range wf.Steps {
		assert.Equal(t, entity.StepApproved, step.Status)
	}

	trail, err := engine.GetAuditTrail(ctx, "REQ-2")
	require.NoError(t, err)
	require.Len(t, trail, 5)
	wantActions := []entity.AuditAction{
		entity.AuditWorkflowCreated,
		entity.AuditStepApproved,
		entity.AuditStepApproved,
		entity.AuditStepApproved,
		entity.AuditWorkflowApproved,
	}
	for i, want := range wantActions {
		assert.Equal(t, want, trail[i].Action, "entry %d", i)
	}
}

func TestApproveWrongRoleLeavesStateUnchanged(t *testing.T) {
	engine, repo, audit := newTestEngine(t)
	ctx := context.Background()

	wf, err := engine.CreateWorkflow(ctx, "REQ-3", "procurement", "", "alice@example.com")
	require.NoError(t, err)
	entriesBefore := len(audit.entries)

	_, err = engine.ApproveStep(ctx, wf.ID, "fin@example.com", "Finance", "Finance", "")
	require.ErrorIs(t, err, domainwf.ErrForbidden)

	stored, err := repo.GetByID(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.WorkflowPending, stored.Status)
	assert.Equal(t, 0, stored.CurrentStep)
	assert.Equal(t, entity.StepPending, stored.Steps[0].Status)
	assert.Len(t, audit.entries, entriesBefore, "failed approval must not audit")
}

func TestApproveDepartmentGate(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	wf, err := engine.CreateWorkflow(ctx, "REQ-4", "procurement", "", "alice@example.com")
	require.NoError(t, err)

	wf, err = engine.ApproveStep(ctx, wf.ID, "mgr@example.com", "Manager", "", "")
	require.NoError(t, err)

	// Finance step declares a department; right role, wrong department
	_, err = engine.ApproveStep(ctx, wf.ID, "fin@example.com", "Finance", "Engineering", "")
	require.ErrorIs(t, err, domainwf.ErrForbidden)

	_, err = engine.ApproveStep(ctx, wf.ID, "fin@example.com", "Finance", "Finance", "")
	assert.NoError(t, err)
}

func TestApproveUnknownWorkflow(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.ApproveStep(context.Background(), "WF-missing", "mgr@example.com", "Manager", "", "")
	assert.ErrorIs(t, err, domainwf.ErrNotFound)
}

func TestRejectStep(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	wf, err := engine.CreateWorkflow(ctx, "REQ-5", "procurement", "", "alice@example.com")
	require.NoError(t, err)

	wf, err = engine.ApproveStep(ctx, wf.ID, "mgr@example.com", "Manager", "", "")
	require.NoError(t, err)

	wf, err = engine.RejectStep(ctx, wf.ID, "fin@example.com", "Finance", "Finance", "budget exceeded")
	require.NoError(t, err)

	assert.Equal(t, entity.WorkflowRejected, wf.Status)
	assert.Equal(t, 1, wf.CurrentStep, "pointer stays at the rejection step")
	assert.Equal(t, entity.StepApproved, wf.Steps[0].Status, "earlier approval is retained")
	assert.Equal(t, entity.StepRejected, wf.Steps[1].Status)
	assert.Equal(t, "budget exceeded", wf.Steps[1].RejectionReason)
	assert.Equal(t, "fin@example.com", wf.Steps[1].RejectedBy)
	assert.Equal(t, entity.StepAwaiting, wf.Steps[2].Status, "later steps stay awaiting")

	// Terminal until resubmission
	_, err = engine.ApproveStep(ctx, wf.ID, "fin@example.com", "Finance", "Finance", "")
	assert.ErrorIs(t, err, domainwf.ErrInvalidState)
	_, err = engine.RejectStep(ctx, wf.ID, "fin@example.com", "Finance", "Finance", "again")
	assert.ErrorIs(t, err, domainwf.ErrInvalidState)
}

func TestRejectWrongRole(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	ctx := context.Background()

	wf, err := engine.CreateWorkflow(ctx, "REQ-6", "procurement", "", "alice@example.com")
	require.NoError(t, err)

	// Rejection is validated the same way as approval
	_, err = engine.RejectStep(ctx, wf.ID, "dir@example.com", "Director", "", "not my step")
	require.ErrorIs(t, err, domainwf.ErrForbidden)

	stored, err := repo.GetByID(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.WorkflowPending, stored.Status)
}

func TestCanResubmit(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	ctx := context.Background()

	assert.False(t, engine.CanResubmit(ctx, "WF-missing"))

	wf, err := engine.CreateWorkflow(ctx, "REQ-7", "procurement", "", "alice@example.com")
	require.NoError(t, err)
	assert.False(t, engine.CanResubmit(ctx, wf.ID), "pending workflow cannot be resubmitted")

	_, err = engine.RejectStep(ctx, wf.ID, "mgr@example.com", "Manager", "", "incomplete")
	require.NoError(t, err)
	assert.True(t, engine.CanResubmit(ctx, wf.ID))

	repo.failGet = true
	assert.False(t, engine.CanResubmit(ctx, wf.ID), "storage errors report false")
}

func TestResubmitWorkflow(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	wf, err := engine.CreateWorkflow(ctx, "REQ-8", "procurement", "", "alice@example.com")
	require.NoError(t, err)
	wf, err = engine.ApproveStep(ctx, wf.ID, "mgr@example.com", "Manager", "", "")
	require.NoError(t, err)
	wf, err = engine.RejectStep(ctx, wf.ID, "fin@example.com", "Finance", "Finance", "missing receipts")
	require.NoError(t, err)

	wf, err = engine.ResubmitWorkflow(ctx, wf.ID, "alice@example.com")
	require.NoError(t, err)

	assert.Equal(t, entity.WorkflowInProgress, wf.Status)
	assert.Equal(t, 0, wf.CurrentStep)
	assert.Equal(t, entity.StepPending, wf.Steps[0].Status)
	assert.Equal(t, entity.StepAwaiting, wf.Steps[1].Status)
	assert.Empty(t, wf.Steps[0].ApprovedBy, "prior approval state is cleared")
	assert.Empty(t, wf.Steps[1].RejectionReason)
	assert.Nil(t, wf.Steps[0].ApprovedAt)

	// The audit log keeps the full history of the first attempt
	trail, err := engine.GetAuditTrail(ctx, "REQ-8")
	require.NoError(t, err)
	require.Len(t, trail, 4)
	assert.Equal(t, entity.AuditWorkflowCreated, trail[0].Action)
	assert.Equal(t, entity.AuditStepApproved, trail[1].Action)
	assert.Equal(t, entity.AuditWorkflowRejected, trail[2].Action)
	assert.Equal(t, entity.AuditWorkflowResubmitted, trail[3].Action)

	// The second attempt runs through the full sequence again
	wf, err = engine.ApproveStep(ctx, wf.ID, "mgr@example.com", "Manager", "", "")
	require.NoError(t, err)
	wf, err = engine.ApproveStep(ctx, wf.ID, "fin@example.com", "Finance", "Finance", "")
	require.NoError(t, err)
	wf, err = engine.ApproveStep(ctx, wf.ID, "dir@example.com", "Director", "", "")
	require.NoError(t, err)
	assert.Equal(t, entity.WorkflowApproved, wf.Status)
}

func TestResubmitNonRejected(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	wf, err := engine.CreateWorkflow(ctx, "REQ-9", "procurement", "", "alice@example.com")
	require.NoError(t, err)

	_, err = engine.ResubmitWorkflow(ctx, wf.ID, "alice@example.com")
	assert.ErrorIs(t, err, domainwf.ErrInvalidState)

	_, err = engine.ResubmitWorkflow(ctx, "WF-missing", "alice@example.com")
	assert.ErrorIs(t, err, domainwf.ErrNotFound)
}

func TestGetNextApprover(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	next, err := engine.GetNextApprover(ctx, "WF-missing")
	require.NoError(t, err)
	assert.Nil(t, next)

	wf, err := engine.CreateWorkflow(ctx, "REQ-10", "procurement", "", "alice@example.com")
	require.NoError(t, err)

	next, err = engine.GetNextApprover(ctx, wf.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "manager-review", next.StepID)
	assert.Equal(t, "Manager", next.Role)
	assert.Equal(t, "Line manager", next.Approver)

	_, err = engine.RejectStep(ctx, wf.ID, "mgr@example.com", "Manager", "", "no")
	require.NoError(t, err)

	next, err = engine.GetNextApprover(ctx, wf.ID)
	require.NoError(t, err)
	assert.Nil(t, next, "terminal workflows have no next approver")
}

func TestGetApprovalProgress(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	progress, err := engine.GetApprovalProgress(ctx, "WF-missing")
	require.NoError(t, err)
	assert.Nil(t, progress)

	wf, err := engine.CreateWorkflow(ctx, "REQ-11", "procurement", "", "alice@example.com")
	require.NoError(t, err)
	wf, err = engine.ApproveStep(ctx, wf.ID, "mgr@example.com", "Manager", "", "")
	require.NoError(t, err)

	progress, err = engine.GetApprovalProgress(ctx, wf.ID)
	require.NoError(t, err)
	require.NotNil(t, progress)
	assert.Equal(t, wf.ID, progress.WorkflowID)
	assert.Equal(t, "REQ-11", progress.RequestID)
	assert.Equal(t, entity.WorkflowInProgress, progress.Status)
	assert.Equal(t, 3, progress.TotalSteps)
	assert.Equal(t, 1, progress.CompletedSteps)
	assert.Equal(t, 1, progress.CurrentStep)
	require.NotNil(t, progress.CurrentStepInfo)
	assert.Equal(t, "finance-review", progress.CurrentStepInfo.StepID)
}

func TestGetPendingApprovalsForRole(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.CreateWorkflow(ctx, "REQ-12", "procurement", "", "alice@example.com")
	require.NoError(t, err)
	second, err := engine.CreateWorkflow(ctx, "REQ-13", "procurement", "", "bob@example.com")
	require.NoError(t, err)

	// Advance the second workflow to the Finance step
	_, err = engine.ApproveStep(ctx, second.ID, "mgr@example.com", "Manager", "", "")
	require.NoError(t, err)

	pending, err := engine.GetPendingApprovalsForRole(ctx, "Manager")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)

	pending, err = engine.GetPendingApprovalsForRole(ctx, "Finance")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	pending, err = engine.GetPendingApprovalsForRole(ctx, "Director")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestLockEvictedOnFullApproval(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	wf, err := engine.CreateWorkflow(ctx, "REQ-14", "procurement", "", "alice@example.com")
	require.NoError(t, err)
	_, err = engine.ApproveStep(ctx, wf.ID, "mgr@example.com", "Manager", "", "")
	require.NoError(t, err)

	impl := engine.(*engineImpl)
	impl.locksMu.Lock()
	_, held := impl.locks[wf.ID]
	impl.locksMu.Unlock()
	assert.True(t, held, "in-flight workflow keeps its mutex")

	_, err = engine.ApproveStep(ctx, wf.ID, "fin@example.com", "Finance", "Finance", "")
	require.NoError(t, err)
	_, err = engine.ApproveStep(ctx, wf.ID, "dir@example.com", "Director", "", "")
	require.NoError(t, err)

	impl.locksMu.Lock()
	_, held = impl.locks[wf.ID]
	impl.locksMu.Unlock()
	assert.False(t, held, "approved workflow's mutex is evicted")

	// Rejected workflows are resubmittable and keep their mutex
	other, err := engine.CreateWorkflow(ctx, "REQ-15", "procurement", "", "bob@example.com")
	require.NoError(t, err)
	_, err = engine.RejectStep(ctx, other.ID, "mgr@example.com", "Manager", "", "no")
	require.NoError(t, err)

	impl.locksMu.Lock()
	_, held = impl.locks[other.ID]
	impl.locksMu.Unlock()
	assert.True(t, held)
}

func TestWorkflowIDFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := generateWorkflowID()
		parts := strings.SplitN(id, "-", 3)
		require.Len(t, parts, 3, "id %q", id)
		assert.Equal(t, "WF", parts[0])
		assert.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}
}
