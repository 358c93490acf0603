package gdbstub

import "testing"

func TestEncodeStopReasonDoneStep(t *testing.T) {
	w := NewResponseWriter(64)
	target := &fakeSingleTarget{}
	reason, err := encodeStopReason(w, target, false, StopDoneStep())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if reason != nil {
		t.Fatalf("expected no disconnect, got %v", *reason)
	}
	if string(w.Bytes()) != "S05" {
		t.Fatalf("body = %q, want %q", w.Bytes(), "S05")
	}
}

func TestEncodeStopReasonExited(t *testing.T) {
	w := NewResponseWriter(64)
	target := &fakeSingleTarget{}
	reason, err := encodeStopReason(w, target, false, StopExited(7))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if reason == nil || *reason != DisconnectTargetExited {
		t.Fatalf("reason = %v, want DisconnectTargetExited", reason)
	}
	if string(w.Bytes()) != "W07" {
		t.Fatalf("body = %q, want %q", w.Bytes(), "W07")
	}
}

func TestEncodeStopReasonSwBreakRequiresCapability(t *testing.T) {
	w := NewResponseWriter(64)
	target := &fakeSingleTarget{}
	if _, err := encodeStopReason(w, target, false, StopSwBreak(1)); err == nil {
		t.Fatal("expected ErrUnsupportedStopReason without a BreakpointOps")
	}

	target.bp = &fakeBreakpoints{sw: true}
	w.Reset()
	reason, err := encodeStopReason(w, target, false, StopSwBreak(1))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if reason != nil {
		t.Fatal("swbreak never ends the session")
	}
	if string(w.Bytes()) != "T05thread:1;swbreak:;" {
		t.Fatalf("body = %q", w.Bytes())
	}
}

func TestEncodeStopReasonSwBreakMultiprocessThreadId(t *testing.T) {
	w := NewResponseWriter(64)
	target := &fakeSingleTarget{bp: &fakeBreakpoints{sw: true}}
	if _, err := encodeStopReason(w, target, true, StopSwBreak(2)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := "T05thread:p1.2;swbreak:;"
	if string(w.Bytes()) != want {
		t.Fatalf("body = %q, want %q", w.Bytes(), want)
	}
}

func TestEncodeStopReasonWatch(t *testing.T) {
	w := NewResponseWriter(64)
	target := &fakeSingleTarget{bp: &fakeBreakpoints{watch: true}}
	reason, err := encodeStopReason(w, target, false, StopWatch(1, WatchWrite, 0x2000))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if reason != nil {
		t.Fatal("watch never ends the session")
	}
	want := "T05thread:1;watch:2000;"
	if string(w.Bytes()) != want {
		t.Fatalf("body = %q, want %q", w.Bytes(), want)
	}
}

func TestEncodeStopReasonWatchKindTags(t *testing.T) {
	cases := []struct {
		kind WatchKind
		tag  string
	}{
		{WatchRead, "rwatch"},
		{WatchWrite, "watch"},
		{WatchReadWrite, "awatch"},
	}
	target := &fakeSingleTarget{bp: &fakeBreakpoints{watch: true}}
	for _, c := range cases {
		w := NewResponseWriter(64)
		if _, err := encodeStopReason(w, target, false, StopWatch(1, c.kind, 0x10)); err != nil {
			t.Fatalf("encode(%v): %v", c.kind, err)
		}
		want := "T05thread:1;" + c.tag + ":10;"
		if string(w.Bytes()) != want {
			t.Fatalf("encode(%v) = %q, want %q", c.kind, w.Bytes(), want)
		}
	}
}

func TestEncodeStopReasonTerminated(t *testing.T) {
	w := NewResponseWriter(64)
	target := &fakeSingleTarget{}
	reason, err := encodeStopReason(w, target, false, StopTerminated(11))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if reason == nil || *reason != DisconnectTargetTerminated {
		t.Fatalf("reason = %v, want DisconnectTargetTerminated", reason)
	}
	if string(w.Bytes()) != "X0b" {
		t.Fatalf("body = %q, want %q", w.Bytes(), "X0b")
	}
}

func TestEncodeStopReasonCatchSyscallRequiresCapability(t *testing.T) {
	w := NewResponseWriter(64)
	target := &fakeSingleTarget{}
	if _, err := encodeStopReason(w, target, false, StopCatchSyscall(3, SyscallEntry)); err == nil {
		t.Fatal("expected ErrUnsupportedStopReason without CatchSyscallsOps")
	}
}

func TestEncodeStopReasonReplayLogRequiresReverseCapability(t *testing.T) {
	w := NewResponseWriter(64)
	target := &fakeSingleTarget{}
	if _, err := encodeStopReason(w, target, false, StopReplayLog(ReplayBegin)); err == nil {
		t.Fatal("expected ErrUnsupportedStopReason without reverse execution support")
	}

	target.reverseCont = true
	w.Reset()
	if _, err := encodeStopReason(w, target, false, StopReplayLog(ReplayEnd)); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(w.Bytes()) != "T05replaylog:end;" {
		t.Fatalf("body = %q", w.Bytes())
	}
}
