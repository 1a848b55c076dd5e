// cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/service"
	"github.com/xkilldash9x/autopilot/internal/status"
)

func newRunCmd(a *app) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one session in the foreground",
		Long:  "Run one session for a stored user and print its statuses as log lines. Interrupt to stop it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := a.logger.With(zap.String("user_id", userID))

			components, err := service.NewComponents(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer components.Shutdown()

			ctrl := components.Controller
			sender := &logSender{logger: logger.Named("status")}
			ctrl.Connect(userID, sender)
			defer ctrl.Disconnect(userID, sender)

			err = ctrl.RunSession(ctx, userID)
			switch {
			case err == nil:
				logger.Info("Session finished")
				return nil
			case errors.Is(err, context.Canceled) || ctx.Err() != nil:
				logger.Warn("Session interrupted")
				return context.Canceled
			default:
				return fmt.Errorf("session for %s failed: %w", userID, err)
			}
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id whose stored configuration is used")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// logSender prints control-plane messages as log lines.
type logSender struct {
	logger *zap.Logger
}

func (s *logSender) Send(msg any) error {
	switch m := msg.(type) {
	case service.NewStateMessage:
		s.logger.Info("Session state", zap.String("state", string(m.State.Status)))
	case service.StatusUpdateMessage:
		s.logStatus(m.Status)
	case service.StatusListMessage:
		for _, u := range m.Statuses {
			s.logStatus(u)
		}
	default:
		s.logger.Debug("Unhandled message", zap.Any("message", msg))
	}
	return nil
}

func (s *logSender) logStatus(u status.Update) {
	fields := []zap.Field{zap.String("id", u.ID), zap.String("type", string(u.Type))}
	if u.Description != "" {
		fields = append(fields, zap.String("description", u.Description))
	}
	switch u.Type {
	case status.Error:
		s.logger.Error(u.Message, fields...)
	default:
		s.logger.Info(u.Message, fields...)
	}
}
