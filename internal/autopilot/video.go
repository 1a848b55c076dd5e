package autopilot

import (
	"context"

	"go.uber.org/zap"
)

// completeVideo waits for playback to start and then, with no bound of its
// own, for it to end before advancing the frame.
func (d *Dispatcher) completeVideo(ctx context.Context, act activity) (Transition, error) {
	if _, err := requireElement(ctx, act.frame, SelVideoPause, d.wait(d.timeouts.Default)); err != nil {
		return Stop, err
	}
	d.logger.Info("Video playback detected.")

	if _, err := requireElement(ctx, act.frame, SelVideoPlay, WaitOptions{}); err != nil {
		return Stop, err
	}
	d.logger.Info("Video completed.", zap.String("status_id", act.statusID))

	if err := d.clock.Sleep(ctx, d.timeouts.VideoCompletion); err != nil {
		return Stop, err
	}
	if err := clickNow(ctx, act.frame, SelFrameRight); err != nil {
		return Stop, err
	}
	return NextActivity, nil
}
