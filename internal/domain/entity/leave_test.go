package entity

import "testing"

func TestBucketForLeaveType(t *testing.T) {
	tests := []struct {
		name      string
		leaveType string
		want      string
	}{
		{name: "annual", leaveType: "Annual", want: BucketAnnual},
		{name: "annual leave long form", leaveType: "Annual Leave", want: BucketAnnual},
		{name: "sick", leaveType: "sick", want: BucketSick},
		{name: "sick leave with whitespace", leaveType: "  Sick Leave  ", want: BucketSick},
		{name: "personal", leaveType: "Personal", want: BucketPersonal},
		{name: "maternity leave", leaveType: "Maternity Leave", want: BucketMaternity},
		{name: "paternity", leaveType: "paternity", want: BucketPaternity},
		{
			// Exact matching: a compound type gets its own bucket rather
			// than being classified by whichever known word appears in it
			name:      "compound type stays its own bucket",
			leaveType: "Paternity-Annual-Combined",
			want:      "paternity-annual-combined",
		},
		{name: "unknown type lowercased", leaveType: "Study Leave", want: "study leave"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BucketForLeaveType(tt.leaveType); got != tt.want {
				t.Errorf("BucketForLeaveType(%q) = %q, want %q", tt.leaveType, got, tt.want)
			}
		})
	}
}
