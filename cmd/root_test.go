package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/autopilot/internal/config"
	"github.com/xkilldash9x/autopilot/internal/observability"
	"github.com/xkilldash9x/autopilot/internal/server"
)

func TestMain(m *testing.M) {
	// Claim the global logger so commands under test never open a log file.
	observability.Initialize(config.LoggerConfig{Level: "error"}, zapcore.AddSync(io.Discard))
	os.Exit(m.Run())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "autopilot dev ("), out)

	out, err = execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "autopilot version dev\n", out)
}

func TestRunRequiresUser(t *testing.T) {
	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "user" not set`)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "autopilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9999"
autopilot:
  student:
    name: Ada
  timeouts:
    default: 45s
`), 0o600))
	t.Setenv("AUTOPILOT_LLM_MODEL", "gpt-test")

	a := &app{v: viper.New(), cfgFile: path}
	require.NoError(t, a.load())

	assert.Equal(t, ":9999", a.cfg.Server.Addr)
	assert.Equal(t, "Ada", a.cfg.Autopilot.Student.Name)
	assert.Equal(t, "45s", a.cfg.Autopilot.Timeouts.Default.String())
	assert.Equal(t, "gpt-test", a.cfg.LLM.Model)
	// Untouched keys keep their defaults.
	assert.Equal(t, "#nextQuestion", a.cfg.Autopilot.NextQuestion)
}

func TestConfigFileMissing(t *testing.T) {
	a := &app{v: viper.New(), cfgFile: filepath.Join(t.TempDir(), "missing.yaml")}
	assert.Error(t, a.load())
}

func TestEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("AUTOPILOT_SERVER_JWT_SECRET=from-dotenv\n"), 0o600))
	t.Setenv("AUTOPILOT_SERVER_JWT_SECRET", "")
	// godotenv never overrides variables that are already set.
	require.NoError(t, os.Unsetenv("AUTOPILOT_SERVER_JWT_SECRET"))

	a := &app{v: viper.New(), envFile: envFile, cfgFile: writeEmptyConfig(t)}
	require.NoError(t, a.load())
	assert.Equal(t, "from-dotenv", a.cfg.Server.JWTSecret)
}

func writeEmptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))
	return path
}

func TestToken(t *testing.T) {
	t.Setenv("AUTOPILOT_SERVER_JWT_SECRET", "dev-secret")
	out, err := execute(t, "--config", writeEmptyConfig(t), "token", "user-1", "--ttl", "1h")
	require.NoError(t, err)

	auth, err := server.NewAuthenticator("dev-secret")
	require.NoError(t, err)
	sub, err := auth.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestTokenRequiresSecret(t *testing.T) {
	t.Setenv("AUTOPILOT_SERVER_JWT_SECRET", "")
	_, err := execute(t, "--config", writeEmptyConfig(t), "token", "user-1")
	assert.Error(t, err)
}

func TestUserLifecycle(t *testing.T) {
	t.Setenv("AUTOPILOT_DATABASE_PATH", filepath.Join(t.TempDir(), "autopilot.db"))
	t.Setenv("AUTOPILOT_DATABASE_ENCRYPTION_KEY", "test-key")
	cfg := writeEmptyConfig(t)

	out, err := execute(t, "--config", cfg, "user", "set", "user-1", "--username", "student@example.com", "--password", "hunter2", "--time-per-word", "0.5")
	require.NoError(t, err)
	assert.Contains(t, out, "Stored configuration for user-1")

	out, err = execute(t, "--config", cfg, "user", "show", "user-1")
	require.NoError(t, err)
	assert.Contains(t, out, "student@example.com")
	assert.Contains(t, out, "********")
	assert.NotContains(t, out, "hunter2")
	assert.Contains(t, out, "time per word: 0.5")

	_, err = execute(t, "--config", cfg, "user", "delete", "user-1")
	require.NoError(t, err)

	_, err = execute(t, "--config", cfg, "user", "show", "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no configuration stored for user-1")
}

func TestUserSetRequiresCredentials(t *testing.T) {
	_, err := execute(t, "--config", writeEmptyConfig(t), "user", "set", "user-1", "--username", "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "password" not set`)
}

func TestLogs(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "autopilot.log")
	require.NoError(t, os.WriteFile(logFile, []byte("{\"msg\":\"one\"}\n{\"msg\":\"two\"}\n"), 0o600))
	t.Setenv("AUTOPILOT_LOGGER_LOG_FILE", logFile)

	out, err := execute(t, "--config", writeEmptyConfig(t), "logs")
	require.NoError(t, err)
	assert.Equal(t, "{\"msg\":\"one\"}\n{\"msg\":\"two\"}\n", out)
}

func TestLogsMissingFile(t *testing.T) {
	t.Setenv("AUTOPILOT_LOGGER_LOG_FILE", filepath.Join(t.TempDir(), "nope.log"))
	_, err := execute(t, "--config", writeEmptyConfig(t), "logs")
	assert.Error(t, err)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "********", maskSecret("x"))
}
