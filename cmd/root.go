// cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/config"
	"github.com/xkilldash9x/autopilot/internal/observability"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	cfgFile string
	envFile string
	v       *viper.Viper
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRootCommand builds a fresh command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "autopilot",
		Short:         "Autopilot completes online coursework activities in a headless browser.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			a.logger.Debug("Configuration loaded", zap.String("version", Version), zap.String("command", cmd.Name()))
			return nil
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "autopilot version %s\n" .Version}}`)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml or ~/.autopilot/config.yaml)")
	flags.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	flags.String("log-level", "", "override logger.level")
	_ = a.v.BindPFlag("logger.level", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		newServeCmd(a),
		newRunCmd(a),
		newUserCmd(a),
		newTokenCmd(a),
		newLogsCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// load resolves configuration from the dotenv file, the config file and the
// environment, then initializes logging.
func (a *app) load() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", a.envFile, err)
		}
	}

	v := a.v
	config.SetDefaults(v)
	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".autopilot"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix("AUTOPILOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	observability.InitializeLogger(cfg.Logger)
	a.logger = observability.GetLogger()
	if used := v.ConfigFileUsed(); used != "" {
		a.logger.Debug("Using config file", zap.String("path", used))
	}
	return nil
}

// Execute runs the command tree under ctx. context.Canceled is returned
// unchanged so the caller can treat an interrupt as a clean exit.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	observability.Sync()
	fmt.Fprintln(os.Stderr, "Error:", err)
	return err
}
