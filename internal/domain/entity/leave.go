package entity

import (
	"strings"
	"time"
)

// LeaveStatus is the business-side status of a leave request. It is
// derived from the gating workflow's terminal transitions.
type LeaveStatus string

const (
	LeavePending  LeaveStatus = "Pending"
	LeaveApproved LeaveStatus = "Approved"
	LeaveRejected LeaveStatus = "Rejected"
)

// String returns the string representation of the status
func (s LeaveStatus) String() string {
	return string(s)
}

// Known leave balance buckets
const (
	BucketAnnual    = "annual"
	BucketSick      = "sick"
	BucketPersonal  = "personal"
	BucketMaternity = "maternity"
	BucketPaternity = "paternity"
)

// leaveTypeBuckets maps declared leave types to balance buckets. Matching
// is exact on the normalized name, not substring, so compound types like
// "Paternity-Annual-Combined" land in their own dynamic bucket instead of
// being silently misclassified.
var leaveTypeBuckets = map[string]string{
	"annual":          BucketAnnual,
	"annual leave":    BucketAnnual,
	"sick":            BucketSick,
	"sick leave":      BucketSick,
	"personal":        BucketPersonal,
	"personal leave":  BucketPersonal,
	"maternity":       BucketMaternity,
	"maternity leave": BucketMaternity,
	"paternity":       BucketPaternity,
	"paternity leave": BucketPaternity,
}

// BucketForLeaveType resolves a declared leave type to its balance bucket.
// Unrecognized types get a dynamic bucket keyed by the lowercased type.
func BucketForLeaveType(leaveType string) string {
	norm := strings.ToLower(strings.TrimSpace(leaveType))
	if bucket, ok := leaveTypeBuckets[norm]; ok {
		return bucket
	}
	return norm
}

// LeaveRequest is the business object gated by the leave approval workflow
type LeaveRequest struct {
	ID                  string      `json:"id"`
	Type                string      `json:"type"`
	Days                float64     `json:"days"`
	Email               string      `json:"email"`
	ApplicantName       string      `json:"applicant_name"`
	Department          string      `json:"department"`
	Status              LeaveStatus `json:"status"`
	WorkflowID          string      `json:"workflow_id"`
	ReturnedToApplicant bool        `json:"returned_to_applicant"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// LeaveBalance holds the derived remaining days per bucket for one
// subject. Allotments is the baseline the recompute replays against;
// Balances is the derived remainder and is never used as input.
type LeaveBalance struct {
	SubjectID   string             `json:"subject_id"`
	Allotments  map[string]float64 `json:"allotments"`
	Balances    map[string]float64 `json:"balances"`
	LastUpdated time.Time          `json:"last_updated"`
}
