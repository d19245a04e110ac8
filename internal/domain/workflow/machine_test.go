package workflow

import (
	"errors"
	"testing"
)

func TestStateValidity(t *testing.T) {
	tests := []struct {
		name         string
		state        State
		wantValid    bool
		wantTerminal bool
	}{
		{name: "pending is valid and not terminal", state: StatePending, wantValid: true, wantTerminal: false},
		{name: "in-progress is valid and not terminal", state: StateInProgress, wantValid: true, wantTerminal: false},
		{name: "approved is valid and terminal", state: StateApproved, wantValid: true, wantTerminal: true},
		{name: "rejected is valid and terminal", state: StateRejected, wantValid: true, wantTerminal: true},
		{name: "unknown state is invalid", state: State("cancelled"), wantValid: false, wantTerminal: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.wantValid {
				t.Errorf("IsValid() = %v, want %v", got, tt.wantValid)
			}
			if got := tt.state.IsTerminal(); got != tt.wantTerminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.wantTerminal)
			}
		})
	}
}

func TestApprovalStateMachineTransitions(t *testing.T) {
	tests := []struct {
		name      string
		from      State
		trigger   Trigger
		wantState State
		wantErr   bool
	}{
		{name: "pending advances to in-progress", from: StatePending, trigger: TriggerAdvance, wantState: StateInProgress},
		{name: "pending completes directly for single-step workflows", from: StatePending, trigger: TriggerComplete, wantState: StateApproved},
		{name: "pending can be rejected", from: StatePending, trigger: TriggerReject, wantState: StateRejected},
		{name: "pending cannot be resubmitted", from: StatePending, trigger: TriggerResubmit, wantErr: true},
		{name: "in-progress advances to itself", from: StateInProgress, trigger: TriggerAdvance, wantState: StateInProgress},
		{name: "in-progress completes to approved", from: StateInProgress, trigger: TriggerComplete, wantState: StateApproved},
		{name: "in-progress can be rejected", from: StateInProgress, trigger: TriggerReject, wantState: StateRejected},
		{name: "rejected can only be resubmitted", from: StateRejected, trigger: TriggerResubmit, wantState: StateInProgress},
		{name: "rejected cannot advance", from: StateRejected, trigger: TriggerAdvance, wantErr: true},
		{name: "rejected cannot complete", from: StateRejected, trigger: TriggerComplete, wantErr: true},
		{name: "approved permits nothing", from: StateApproved, trigger: TriggerAdvance, wantErr: true},
		{name: "approved cannot be resubmitted", from: StateApproved, trigger: TriggerResubmit, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine := BuildApprovalStateMachine(tt.from)

			err := machine.Fire(tt.trigger)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Fire(%s) from %s: expected error, got none", tt.trigger, tt.from)
				}
				if !errors.Is(err, ErrInvalidTransition) {
					t.Errorf("Fire(%s) error = %v, want ErrInvalidTransition", tt.trigger, err)
				}
				if machine.State() != tt.from {
					t.Errorf("state changed to %s after failed fire", machine.State())
				}
				return
			}

			if err != nil {
				t.Fatalf("Fire(%s) from %s: unexpected error %v", tt.trigger, tt.from, err)
			}
			if machine.State() != tt.wantState {
				t.Errorf("State() = %s, want %s", machine.State(), tt.wantState)
			}
		})
	}
}

func TestCanFireMatchesFire(t *testing.T) {
	states := []State{StatePending, StateInProgress, StateApproved, StateRejected}
	triggers := []Trigger{TriggerAdvance, TriggerComplete, TriggerReject, TriggerResubmit}

	for _, state := range states {
		for _, trigger := range triggers {
			machine := BuildApprovalStateMachine(state)
			canFire := machine.CanFire(trigger)
			err := machine.Fire(trigger)
			if canFire && err != nil {
				t.Errorf("CanFire(%s) from %s was true but Fire failed: %v", trigger, state, err)
			}
			if !canFire && err == nil {
				t.Errorf("CanFire(%s) from %s was false but Fire succeeded", trigger, state)
			}
		}
	}
}

func TestPermittedTriggers(t *testing.T) {
	machine := BuildApprovalStateMachine(StateApproved)
	if got := machine.PermittedTriggers(); len(got) != 0 {
		t.Errorf("approved state permits %v, want none", got)
	}

	machine = BuildApprovalStateMachine(StateRejected)
	got := machine.PermittedTriggers()
	if len(got) != 1 || got[0] != TriggerResubmit {
		t.Errorf("rejected state permits %v, want only resubmit", got)
	}
}

func TestBuilderPanicsOnInvalidState(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Configure with an invalid state did not panic")
		}
	}()
	NewBuilder().Configure(State("bogus"))
}

func TestBuiltMachinesAreIndependent(t *testing.T) {
	first := BuildApprovalStateMachine(StatePending)
	second := BuildApprovalStateMachine(StatePending)

	if err := first.Fire(TriggerReject); err != nil {
		t.Fatalf("Fire failed: %v", err)
	}
	if second.State() != StatePending {
		t.Errorf("second machine moved to %s when first was fired", second.State())
	}
}
