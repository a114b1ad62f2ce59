package session

import "testing"

func TestStateString(t *testing.T) {
	cases := []struct {
		state State
		want  string
	}{
		{Connecting, "connecting"},
		{Open, "open"},
		{Closing, "closing"},
		{Closed, "closed"},
		{Failed, "failed"},
		{State(42), "unknown"},
	}
	for _, tc := range cases {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tc.state), got, tc.want)
		}
	}
}

func TestStateTerminal(t *testing.T) {
	for _, s := range []State{Connecting, Open, Closing} {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", s)
		}
	}
	for _, s := range []State{Closed, Failed} {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", s)
		}
	}
}
