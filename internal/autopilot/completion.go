package autopilot

import (
	"context"
	"fmt"
)

// finishQuestion moves past an answered question: to the next question of a
// multi-part activity when there is one, otherwise through check, feedback
// and frame advance.
func (d *Dispatcher) finishQuestion(ctx context.Context, act activity, preview Frame) (Transition, error) {
	nav, err := preview.Query(ctx, SelNavButtonList)
	if err != nil {
		return Stop, fmt.Errorf("querying question navigation: %w", err)
	}
	if nav != nil {
		if err := waitAndClick(ctx, preview, d.cfg.NextQuestion, d.wait(d.timeouts.Default)); err != nil {
			return Stop, err
		}
		return NextActivity, nil
	}

	if err := clickNow(ctx, act.frame, SelCheckButton); err != nil {
		return Stop, err
	}
	if _, err := requireElement(ctx, act.frame, SelExitAudioButton, d.wait(d.timeouts.Default)); err != nil {
		return Stop, err
	}
	if err := clickNow(ctx, act.frame, SelFrameRight); err != nil {
		return Stop, err
	}
	return NextActivity, nil
}
