// internal/autopilot/dispatcher.go
package autopilot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/config"
	"github.com/xkilldash9x/autopilot/internal/llmclient"
	"github.com/xkilldash9x/autopilot/internal/status"
)

// Transition is what the session loop does after one dispatch cycle.
type Transition int

const (
	// NextActivity runs another cycle on the activity now on screen.
	NextActivity Transition = iota
	// Stop ends the session loop normally.
	Stop
)

func (t Transition) String() string {
	if t == Stop {
		return "stop"
	}
	return "next_activity"
}

// Kind is the classification of the current activity.
type Kind string

const (
	KindQuiz         Kind = "Quiz"
	KindVideo        Kind = "Video"
	KindInstructions Kind = "Instructions"
	KindQuickCheck   Kind = "QuickCheck"
)

// Downloader fetches a resource with the session's cookies.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Renderer turns markdown into a printable PDF.
type Renderer interface {
	RenderPDF(ctx context.Context, markdown string) ([]byte, error)
}

// Deps is everything a dispatcher needs for one session.
type Deps struct {
	Page       Page
	LLM        llmclient.Client
	Status     *status.Log
	Downloader Downloader
	// Renderer is optional; without it no PDF is produced.
	Renderer    Renderer
	Config      config.AutopilotConfig
	TimePerWord float64
	Clock       Clock
	Logger      *zap.Logger
}

// Dispatcher classifies the activity on screen and runs its strategy.
type Dispatcher struct {
	page       Page
	llm        llmclient.Client
	status     *status.Log
	downloader Downloader
	renderer   Renderer
	cfg        config.AutopilotConfig
	timeouts   config.TimeoutsConfig
	perWord    float64
	clock      Clock
	logger     *zap.Logger
}

// NewDispatcher builds a dispatcher. A nil clock means the system clock.
func NewDispatcher(d Deps) *Dispatcher {
	clock := d.Clock
	if clock == nil {
		clock = SystemClock
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	perWord := d.TimePerWord
	if perWord <= 0 {
		perWord = 1
	}
	return &Dispatcher{
		page:       d.Page,
		llm:        d.LLM,
		status:     d.Status,
		downloader: d.Downloader,
		renderer:   d.Renderer,
		cfg:        d.Config,
		timeouts:   d.Config.Timeouts,
		perWord:    perWord,
		clock:      clock,
		logger:     logger.Named("dispatcher"),
	}
}

// activity is the per-cycle state handed to a strategy.
type activity struct {
	kind     Kind
	frame    Frame
	statusID string
}

// Step runs one classify-and-complete cycle.
func (d *Dispatcher) Step(ctx context.Context) (Transition, error) {
	if err := d.advanceSubStep(ctx); err != nil {
		return Stop, err
	}

	titleEl, err := requireElement(ctx, d.page, SelActivityTitle, d.wait(d.timeouts.Default))
	if err != nil {
		return Stop, err
	}
	title, err := titleEl.Text(ctx)
	if err != nil {
		return Stop, fmt.Errorf("reading activity title: %w", err)
	}
	d.logger.Info("Processing activity.", zap.String("title", title))

	if Kind(title) == KindQuiz {
		d.status.Push(status.Pending, "Quiz detected", "Quizzes are left for the student to complete")
		d.logger.Info("Quiz detected, leaving it for the student.")
		return Stop, nil
	}

	stage, err := requireElement(ctx, d.page, SelStageFrame, d.wait(d.timeouts.Default))
	if err != nil {
		return Stop, err
	}
	frame, err := stage.ContentFrame(ctx)
	if err != nil {
		return Stop, fmt.Errorf("resolving activity frame: %w", err)
	}
	if frame == nil {
		d.logger.Debug("Stage frame has no document yet.")
		return Stop, nil
	}

	if err := d.probeClick(ctx, frame, SelFrameRight, d.wait(d.timeouts.Default)); err != nil {
		return Stop, err
	}
	if err := d.logProgress(ctx, frame); err != nil {
		return Stop, err
	}
	if err := d.clock.Sleep(ctx, d.timeouts.Settle); err != nil {
		return Stop, err
	}

	kind, err := d.classify(ctx, frame)
	if err != nil {
		return Stop, err
	}
	act := activity{
		kind:     kind,
		frame:    frame,
		statusID: d.status.Push(status.Pending, fmt.Sprintf("Processing %s activity", kind), ""),
	}

	var t Transition
	switch kind {
	case KindVideo:
		t, err = d.completeVideo(ctx, act)
	case KindInstructions:
		t, err = d.completeWorksheet(ctx, act)
	default:
		t, err = d.completeQuestion(ctx, act)
	}
	if err != nil {
		return Stop, err
	}
	if t == NextActivity {
		d.settle(act, status.Success, fmt.Sprintf("%s activity completed", kind), "")
	}
	return t, nil
}

// advanceSubStep clicks the footer's next control when an uncompleted
// sub-step remains.
func (d *Dispatcher) advanceSubStep(ctx context.Context) error {
	return d.probeClick(ctx, d.page, SelFootnavRight, d.wait(d.timeouts.NavigationDelay))
}

// probeClick clicks selector if it shows up within opts. Neither absence nor
// a failed click is an error.
func (d *Dispatcher) probeClick(ctx context.Context, q Querier, selector string, opts WaitOptions) error {
	el, err := probeElement(ctx, q, selector, opts)
	if err != nil || el == nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.logger.Debug("Optional click failed.", zap.String("selector", selector), zap.Error(err))
	}
	return nil
}

func (d *Dispatcher) logProgress(ctx context.Context, frame Frame) error {
	el, err := probeElement(ctx, frame, SelFrameProgress, d.wait(d.timeouts.FrameProgress))
	if err != nil {
		return err
	}
	if el == nil {
		d.logger.Debug("Activity progress not available.")
		return nil
	}
	if text, err := el.Text(ctx); err == nil {
		d.logger.Info("Activity progress.", zap.String("progress", text))
	}
	return nil
}

// classify decides the activity kind from the shape of the frame's DOM.
func (d *Dispatcher) classify(ctx context.Context, frame Frame) (Kind, error) {
	preview, err := frame.Query(ctx, SelPreviewFrame)
	if err != nil {
		return "", fmt.Errorf("querying preview frame: %w", err)
	}
	if preview != nil {
		var hidden bool
		if err := preview.Call(ctx, jsDisplayNone, &hidden); err == nil && hidden {
			return KindVideo, nil
		}
	}

	upload, err := frame.Query(ctx, SelFileInput)
	if err != nil {
		return "", fmt.Errorf("querying file input: %w", err)
	}
	if upload != nil {
		return KindInstructions, nil
	}
	return KindQuickCheck, nil
}

// settle rewrites the activity's status entry.
func (d *Dispatcher) settle(act activity, t status.Type, message, description string) {
	if err := d.status.Update(act.statusID, t, message, description); err != nil {
		d.logger.Warn("Could not update activity status.", zap.Error(err))
	}
}

func (d *Dispatcher) wait(timeout time.Duration) WaitOptions {
	return WaitOptions{Timeout: timeout}
}
