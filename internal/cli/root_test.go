package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand("1.2.3")
	require.NotNil(t, cmd)
	assert.Equal(t, "sensorspace", cmd.Use)
	assert.Equal(t, "1.2.3", cmd.Version)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand("dev")
	for _, name := range []string{"ingest", "convert", "migrate"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			require.NotNil(t, sub)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand("dev")

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
	assert.Equal(t, "", configFlag.DefValue)

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "false", verboseFlag.DefValue)
}

func TestIngestCommandFlags(t *testing.T) {
	cmd := NewRootCommand("dev")
	ingestCmd, _, err := cmd.Find([]string{"ingest"})
	require.NoError(t, err)

	bindFlag := ingestCmd.Flags().Lookup("bind")
	require.NotNil(t, bindFlag)
	assert.Equal(t, "b", bindFlag.Shorthand)
	assert.Equal(t, "stringArray", bindFlag.Value.Type())

	require.NotNil(t, ingestCmd.Flags().Lookup("sink"))
	require.NotNil(t, ingestCmd.Flags().Lookup("format"))
	require.NotNil(t, ingestCmd.Flags().Lookup("metrics-addr"))
}

func TestConvertCommandFlags(t *testing.T) {
	cmd := NewRootCommand("dev")
	convertCmd, _, err := cmd.Find([]string{"convert"})
	require.NoError(t, err)

	assert.Equal(t, "json", convertCmd.Flags().Lookup("from").DefValue)
	assert.Equal(t, "json", convertCmd.Flags().Lookup("to").DefValue)
	assert.Equal(t, "false", convertCmd.Flags().Lookup("publish").DefValue)
}

func TestLoadConfig_Verbose(t *testing.T) {
	t.Setenv(configEnv, "")
	cfg, err := loadConfig(&RootOptions{Verbose: true})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: warn\n")
	t.Setenv(configEnv, path)

	cfg, err := loadConfig(&RootOptions{})
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, "database:\n  engine: postgres\n")
	_, err := loadConfig(&RootOptions{ConfigPath: path})
	assert.Error(t, err)
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}
