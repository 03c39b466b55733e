package tap

import "testing"

func TestNextStateTable(t *testing.T) {
	type transition struct {
		start State
		tms   bool
		end   State
	}

	cases := []transition{
		{StateTestLogicReset, false, StateRunTestIdle},
		{StateTestLogicReset, true, StateTestLogicReset},
		{StateRunTestIdle, true, StateSelectDRScan},
		{StateSelectDRScan, false, StateCaptureDR},
		{StateShiftDR, true, StateExit1DR},
		{StateExit2DR, false, StateShiftDR},
		{StateSelectIRScan, true, StateTestLogicReset},
		{StateCaptureIR, false, StateShiftIR},
		{StatePauseIR, true, StateExit2IR},
		{StateExit2IR, true, StateUpdateIR},
		{StateUpdateIR, false, StateRunTestIdle},
		{StateExit1DR, true, StateUpdateDR},
	}

	for _, tc := range cases {
		got := NextState(tc.start, tc.tms)
		if got != tc.end {
			t.Fatalf("NextState(%s, %v) = %s, want %s", tc.start, tc.tms, got, tc.end)
		}
	}
}

func TestNextStatePanicsOnInvalidState(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for invalid state")
		}
	}()
	NextState(State(42), false)
}

func TestStateString(t *testing.T) {
	if got := StateShiftIR.String(); got != "ShiftIR" {
		t.Fatalf("String() = %q, want ShiftIR", got)
	}
	if got := State(99).String(); got != "State(99)" {
		t.Fatalf("String() = %q, want State(99)", got)
	}
}

func walk(m *StateMachine, tms ...bool) State {
	for _, bit := range tms {
		m.Clock(bit)
	}
	return m.State()
}

func TestFiveTMSHighCyclesReset(t *testing.T) {
	for s := StateTestLogicReset; s.Valid(); s++ {
		m := &StateMachine{state: s}
		if got := walk(m, true, true, true, true, true); got != StateTestLogicReset {
			t.Fatalf("from %s: state after five TMS=1 = %s, want TestLogicReset", s, got)
		}
	}
}

// The AVR programming choreography: idle, enter Shift-IR, shift 4 bits with
// TMS on the last, walk to Shift-DR, shift, walk back to idle.
func TestWalkProgrammingChoreography(t *testing.T) {
	m := NewStateMachine()

	if got := walk(m, false, false); got != StateRunTestIdle {
		t.Fatalf("after idle clocks = %s, want RunTestIdle", got)
	}
	if got := walk(m, true, true, false, false); got != StateShiftIR {
		t.Fatalf("after IR entry = %s, want ShiftIR", got)
	}
	if got := walk(m, false, false, false, true); got != StateExit1IR {
		t.Fatalf("after IR shift = %s, want Exit1IR", got)
	}
	if got := walk(m, true, false, true, false, false); got != StateShiftDR {
		t.Fatalf("after DR entry = %s, want ShiftDR", got)
	}
	if got := walk(m, false, true); got != StateExit1DR {
		t.Fatalf("after DR shift = %s, want Exit1DR", got)
	}
	if got := walk(m, true, false, false); got != StateRunTestIdle {
		t.Fatalf("after DR exit = %s, want RunTestIdle", got)
	}
	if err := m.Expect(StateRunTestIdle); err != nil {
		t.Fatalf("Expect returned error: %v", err)
	}
	if err := m.Expect(StateShiftDR); err == nil {
		t.Fatalf("expected error from Expect(ShiftDR)")
	}
}
