package leave

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Kavesh2000/Onitticketingsystem/internal/application/port"
	"github.com/Kavesh2000/Onitticketingsystem/internal/domain/entity"
)

// Recomputer rebuilds derived leave balances by replaying every approved
// leave request against the subject's baseline allotment. It never
// patches balances incrementally, so running it any number of times over
// the same request set yields the same result.
type Recomputer struct {
	requests port.LeaveRequestRepository
	balances port.LeaveBalanceRepository
	defaults map[string]float64
	logger   *zap.Logger
}

// NewRecomputer creates a balance recomputer. The defaults map supplies
// the baseline allotment per bucket for subjects seen for the first time.
func NewRecomputer(
	requests port.LeaveRequestRepository,
	balances port.LeaveBalanceRepository,
	defaults map[string]float64,
	logger *zap.Logger,
) *Recomputer {
	return &Recomputer{
		requests: requests,
		balances: balances,
		defaults: defaults,
		logger:   logger,
	}
}

// Recompute rebuilds the balance for one subject and persists it
func (r *Recomputer) Recompute(ctx context.Context, subjectID string) (*entity.LeaveBalance, error) {
	bal, err := r.balances.Get(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("load balance for %s: %w", subjectID, err)
	}
	if bal == nil {
		bal = &entity.LeaveBalance{SubjectID: subjectID}
	}
	if len(bal.Allotments) == 0 {
		bal.Allotments = copyBuckets(r.defaults)
	}

	approved, err := r.requests.ListApprovedBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list approved requests for %s: %w", subjectID, err)
	}

	// Replay against the baseline, never against the previous derived
	// values - that is what keeps the recompute idempotent
	remaining := copyBuckets(bal.Allotments)
	for _, req := range approved {
		bucket := entity.BucketForLeaveType(req.Type)
		remaining[bucket] = floorZero(remaining[bucket] - req.Days)
	}

	bal.Balances = remaining
	bal.LastUpdated = time.Now()

	if err := r.balances.Upsert(ctx, bal); err != nil {
		return nil, fmt.Errorf("store balance for %s: %w", subjectID, err)
	}

	r.logger.Info("Leave balance recomputed",
		zap.String("subject", subjectID),
		zap.Int("approved_requests", len(approved)))
	return bal, nil
}

// RecomputeAll rebuilds balances for every known subject. A failing
// subject is logged and skipped so one bad record cannot block the batch.
// Returns the number of subjects updated.
func (r *Recomputer) RecomputeAll(ctx context.Context) (int, error) {
	subjects, err := r.listSubjects(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, subject := range subjects {
		if _, err := r.Recompute(ctx, subject); err != nil {
			r.logger.Warn("Skipping balance recompute for subject",
				zap.String("subject", subject),
				zap.Error(err))
			continue
		}
		updated++
	}

	r.logger.Info("Leave balance batch recompute finished",
		zap.Int("subjects", len(subjects)),
		zap.Int("updated", updated))
	return updated, nil
}

// listSubjects unions subjects with stored balances and subjects that
// only appear on leave requests
func (r *Recomputer) listSubjects(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)

	stored, err := r.balances.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	for _, b := range stored {
		seen[b.SubjectID] = true
	}

	fromRequests, err := r.requests.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list request subjects: %w", err)
	}
	for _, s := range fromRequests {
		seen[s] = true
	}

	subjects := make([]string, 0, len(seen))
	for s := range seen {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)
	return subjects, nil
}

func copyBuckets(src map[string]float64) map[string]float64 {
	dst := make(map[string]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// floorZero keeps balances from going negative
func floorZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
