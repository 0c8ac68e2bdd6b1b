// Package appctl routes window and lifecycle commands to the embedding
// shell. Operations form a closed set; anything outside it is rejected
// before reaching a controller.
package appctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Op is one recognized window/lifecycle operation.
type Op string

const (
	OpShowMainWindow Op = "show_main_window"
	OpToggleDevtools Op = "toggle_devtools"
	OpSetAlwaysOnTop Op = "set_always_on_top"
)

// ErrUnknownOp is returned for operations outside the closed set.
var ErrUnknownOp = errors.New("unknown app operation")

// ErrNoController is returned when no embedding shell is attached.
var ErrNoController = errors.New("no app controller attached")

// Request is one window/lifecycle command. Flag carries the boolean
// argument for operations that take one (set_always_on_top).
type Request struct {
	Op   Op    `json:"op"`
	Flag *bool `json:"flag,omitempty"`
}

// Capabilities lists the operations a controller supports.
type Capabilities struct {
	Ops []Op `json:"ops"`
}

// Controller is the embedding shell's window surface. The gateway itself
// owns no windows; a desktop host injects its own implementation.
type Controller interface {
	ShowMainWindow(ctx context.Context) error
	ToggleDevtools(ctx context.Context) error
	SetAlwaysOnTop(ctx context.Context, onTop bool) error
}

// Dispatcher validates requests against the closed operation set and
// forwards them to the attached controller.
type Dispatcher struct {
	controller Controller
	logger     *slog.Logger
}

// NewDispatcher wires a controller. A nil controller is allowed; every
// dispatch then fails with ErrNoController while Capabilities still
// reports the full operation set.
func NewDispatcher(controller Controller, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{controller: controller, logger: logger}
}

// Ops returns the closed operation set.
func Ops() []Op {
	return []Op{OpShowMainWindow, OpToggleDevtools, OpSetAlwaysOnTop}
}

// Capabilities reports the supported operations.
func (d *Dispatcher) Capabilities() Capabilities {
	return Capabilities{Ops: Ops()}
}

// Dispatch executes one operation. Unknown operations fail with
// ErrUnknownOp without touching the controller.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) error {
	switch req.Op {
	case OpShowMainWindow, OpToggleDevtools, OpSetAlwaysOnTop:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, req.Op)
	}

	if d.controller == nil {
		return fmt.Errorf("%w: cannot run %q", ErrNoController, req.Op)
	}

	d.logger.Debug("dispatching app operation", slog.String("op", string(req.Op)))

	switch req.Op {
	case OpShowMainWindow:
		return d.controller.ShowMainWindow(ctx)
	case OpToggleDevtools:
		return d.controller.ToggleDevtools(ctx)
	case OpSetAlwaysOnTop:
		// A missing flag turns the pin off, matching the desktop client.
		onTop := false
		if req.Flag != nil {
			onTop = *req.Flag
		}
		return d.controller.SetAlwaysOnTop(ctx, onTop)
	}
	return nil
}

// NoopController acknowledges every operation without doing anything. It
// backs headless deployments where no desktop shell is attached but the
// surface must stay callable.
type NoopController struct {
	Logger *slog.Logger
}

func (n NoopController) ShowMainWindow(ctx context.Context) error {
	n.Logger.Info("show_main_window acknowledged (headless)")
	return nil
}

func (n NoopController) ToggleDevtools(ctx context.Context) error {
	n.Logger.Info("toggle_devtools acknowledged (headless)")
	return nil
}

func (n NoopController) SetAlwaysOnTop(ctx context.Context, onTop bool) error {
	n.Logger.Info("set_always_on_top acknowledged (headless)", slog.Bool("onTop", onTop))
	return nil
}
