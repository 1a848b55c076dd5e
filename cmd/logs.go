// cmd/logs.go
package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

func newLogsCmd(a *app) *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.Logger.LogFile
			if path == "" {
				return errors.New("logger.log_file is not configured")
			}
			return printLog(cmd, path, follow)
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing lines as they are written")
	return cmd
}

// printLog copies the file at path to the command output. With follow it
// keeps reading, across rotations, until the command context is done.
func printLog(cmd *cobra.Command, path string, follow bool) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    follow,
		ReOpen:    follow,
		MustExist: true,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekStart},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer t.Cleanup()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	for {
		select {
		case <-ctx.Done():
			_ = t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				<-t.Dead()
				return t.Err()
			}
			if line.Err != nil {
				return line.Err
			}
			if _, err := fmt.Fprintln(out, line.Text); err != nil {
				return err
			}
		}
	}
}
