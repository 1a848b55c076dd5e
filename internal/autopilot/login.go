package autopilot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/config"
	"github.com/xkilldash9x/autopilot/internal/store"
)

// Login signs in through the platform's identity provider and opens the
// first activity.
func Login(ctx context.Context, page Page, creds store.UserConfig, cfg config.AutopilotConfig, logger *zap.Logger) error {
	t := cfg.Timeouts
	def := WaitOptions{Timeout: t.Default}
	logger.Info("Executing login sequence...")

	navCtx, cancel := context.WithTimeout(ctx, t.Navigation)
	err := page.Navigate(navCtx, cfg.LoginURL)
	cancel()
	if err != nil {
		return fmt.Errorf("opening login page: %w", err)
	}

	if err := waitAndType(ctx, page, SelEmailInput, creds.Username, def); err != nil {
		return err
	}
	if err := waitAndClick(ctx, page, SelSubmitButton, def); err != nil {
		return err
	}

	if _, err := requireElement(ctx, page, SelDisplayName, def); err != nil {
		return err
	}
	if err := waitAndType(ctx, page, SelPasswordInput, creds.Password, def); err != nil {
		return err
	}
	if err := submitAndWait(ctx, page, t.Default); err != nil {
		return err
	}
	logger.Debug("Completing authentication flow.")

	if _, err := requireElement(ctx, page, SelHeading, def); err != nil {
		return err
	}
	if err := submitAndWait(ctx, page, t.Default); err != nil {
		return err
	}

	dup, err := probeElement(ctx, page, SelDuplicateSession, WaitOptions{Timeout: t.DuplicateSession})
	if err != nil {
		return err
	}
	if dup != nil {
		logger.Info("Dismissing duplicate session dialog.")
		if err := waitAndClick(ctx, page, SelContinueButton, def); err != nil {
			return err
		}
	}

	if err := waitAndClick(ctx, page, SelNextActivity, def); err != nil {
		return err
	}
	logger.Info("Login completed.")
	return nil
}

// submitAndWait clicks submit and waits for the navigation it triggers.
func submitAndWait(ctx context.Context, page Page, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := page.ExpectNavigation(navCtx, func(ctx context.Context) error {
		return waitAndClick(ctx, page, SelSubmitButton, WaitOptions{Timeout: timeout})
	})
	if err != nil {
		return fmt.Errorf("submitting login step: %w", err)
	}
	return nil
}
