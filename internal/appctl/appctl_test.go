package appctl

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type recordingController struct {
	calls []string
	onTop []bool
}

func (r *recordingController) ShowMainWindow(context.Context) error {
	r.calls = append(r.calls, "show_main_window")
	return nil
}

func (r *recordingController) ToggleDevtools(context.Context) error {
	r.calls = append(r.calls, "toggle_devtools")
	return nil
}

func (r *recordingController) SetAlwaysOnTop(_ context.Context, onTop bool) error {
	r.calls = append(r.calls, "set_always_on_top")
	r.onTop = append(r.onTop, onTop)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatchRoutesOps(t *testing.T) {
	ctrl := &recordingController{}
	d := NewDispatcher(ctrl, testLogger())

	for _, op := range Ops() {
		if err := d.Dispatch(context.Background(), Request{Op: op}); err != nil {
			t.Fatalf("Dispatch(%s): %v", op, err)
		}
	}

	want := []string{"show_main_window", "toggle_devtools", "set_always_on_top"}
	if len(ctrl.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", ctrl.calls, want)
	}
	for i := range want {
		if ctrl.calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, ctrl.calls[i], want[i])
		}
	}
}

func TestDispatchAlwaysOnTopFlag(t *testing.T) {
	ctrl := &recordingController{}
	d := NewDispatcher(ctrl, testLogger())

	on := true
	if err := d.Dispatch(context.Background(), Request{Op: OpSetAlwaysOnTop, Flag: &on}); err != nil {
		t.Fatal(err)
	}
	// Missing flag turns the pin off.
	if err := d.Dispatch(context.Background(), Request{Op: OpSetAlwaysOnTop}); err != nil {
		t.Fatal(err)
	}

	if len(ctrl.onTop) != 2 || ctrl.onTop[0] != true || ctrl.onTop[1] != false {
		t.Errorf("onTop = %v, want [true false]", ctrl.onTop)
	}
}

func TestDispatchRejectsUnknownOp(t *testing.T) {
	ctrl := &recordingController{}
	d := NewDispatcher(ctrl, testLogger())

	err := d.Dispatch(context.Background(), Request{Op: "quit"})
	if !errors.Is(err, ErrUnknownOp) {
		t.Fatalf("error = %v, want ErrUnknownOp", err)
	}
	if len(ctrl.calls) != 0 {
		t.Errorf("controller reached for unknown op: %v", ctrl.calls)
	}
}

func TestDispatchWithoutController(t *testing.T) {
	d := NewDispatcher(nil, testLogger())

	err := d.Dispatch(context.Background(), Request{Op: OpShowMainWindow})
	if !errors.Is(err, ErrNoController) {
		t.Fatalf("error = %v, want ErrNoController", err)
	}

	// Capabilities still report the full closed set.
	if got := len(d.Capabilities().Ops); got != 3 {
		t.Errorf("Capabilities().Ops has %d entries, want 3", got)
	}
}

func TestNoopControllerAcknowledges(t *testing.T) {
	d := NewDispatcher(NoopController{Logger: testLogger()}, testLogger())
	for _, op := range Ops() {
		if err := d.Dispatch(context.Background(), Request{Op: op}); err != nil {
			t.Errorf("Dispatch(%s) = %v, want nil", op, err)
		}
	}
}
