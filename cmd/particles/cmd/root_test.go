package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/particles/internal/testutil"
)

// isolate runs the test in an empty directory with no reachable config file.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Chdir(dir)
	return dir
}

// fixtures writes the sample fixtures into an isolated working directory.
func fixtures(t *testing.T) string {
	t.Helper()
	dir := isolate(t)
	testutil.WriteSampleFixtures(t, dir)
	return dir
}

// execute runs a fresh root command with args and captures its output.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := GetRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	root := GetRootCommand()
	assert.Equal(t, "particles", root.Use)
	assert.NotEmpty(t, root.Short)
	assert.NotEmpty(t, root.Long)

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"analyze", "batch", "serve", "presets", "config"} {
		assert.Contains(t, names, want)
	}

	flags := root.PersistentFlags()
	for _, name := range []string{"config", "verbose", "log-level"} {
		assert.NotNil(t, flags.Lookup(name), name)
	}
}

func TestRootCommandHelp(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Particle analysis")
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "Usage:")
}

func TestRootCommandNoArgs(t *testing.T) {
	isolate(t)
	out, _, err := execute(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	isolate(t)
	out, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev (commit unknown, built unknown)")
}

func TestRootCommandInvalidFlag(t *testing.T) {
	isolate(t)
	_, stderr, err := execute(t, "--invalid-flag")
	require.Error(t, err)
	assert.Contains(t, stderr, "unknown flag")
}

func TestRootCommand_InvalidLogLevel(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "presets", "--log-level", "chatty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	isolate(t)
	_, _, err := execute(t, "presets", "--config", "nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file does not exist")
}

func TestRootCommand_VerboseLogsToStderr(t *testing.T) {
	dir := fixtures(t)
	out, stderr, err := execute(t, "analyze", dir+"/default.png", "--verbose", "--overlay-dir", dir+"/out")
	require.NoError(t, err)
	assert.NotContains(t, out, `"level"`)
	assert.Contains(t, stderr, `"msg":"analyzed image"`)
	assert.Contains(t, stderr, `"msg":"overlay written"`)
}

func TestRootCommands_DoNotShareFlags(t *testing.T) {
	dir := fixtures(t)
	out, _, err := execute(t, "analyze", "default.png", "--format", "csv")
	require.NoError(t, err)
	assert.Contains(t, out, "source,label,area")

	out, _, err = execute(t, "analyze", dir+"/default.png")
	require.NoError(t, err)
	assert.Contains(t, out, "Particles: 4")
	assert.NotContains(t, out, "source,label,area")
}
