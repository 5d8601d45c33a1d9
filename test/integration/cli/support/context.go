package support

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/particles/internal/testutil"
	"github.com/MeKo-Tech/particles/internal/utils"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Command execution state
	LastCommand  string
	LastOutput   string
	LastStderr   string
	LastError    error
	LastExitCode int
	LastDuration time.Duration

	// Test environment
	TempDir     string
	FixturesDir string
	restoreEnv  map[string]*string

	// Server state
	HTTPTestServer *HTTPTestServerWrapper

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string
}

// NewTestContext creates a scenario context with the sample fixtures
// written into a fresh temporary directory.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "particles-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	fixturesDir := filepath.Join(tempDir, "fixtures")
	for _, f := range testutil.SampleFixtures() {
		if err := utils.SaveImage(filepath.Join(fixturesDir, f.InputFile), f.Scene.Render()); err != nil {
			_ = os.RemoveAll(tempDir)
			return nil, fmt.Errorf("failed to write fixture %s: %w", f.Name, err)
		}
	}

	return &TestContext{
		TempDir:     tempDir,
		FixturesDir: fixturesDir,
		restoreEnv:  map[string]*string{},
	}, nil
}

// SetEnv sets an environment variable until Cleanup.
func (testCtx *TestContext) SetEnv(name, value string) error {
	if _, seen := testCtx.restoreEnv[name]; !seen {
		if old, ok := os.LookupEnv(name); ok {
			testCtx.restoreEnv[name] = &old
		} else {
			testCtx.restoreEnv[name] = nil
		}
	}
	return os.Setenv(name, value)
}

// Cleanup stops the server, restores the environment and removes the
// temporary directory.
func (testCtx *TestContext) Cleanup() error {
	var errs []error

	testCtx.StopServer()

	for name, old := range testCtx.restoreEnv {
		var err error
		if old == nil {
			err = os.Unsetenv(name)
		} else {
			err = os.Setenv(name, *old)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	if err := os.RemoveAll(testCtx.TempDir); err != nil {
		errs = append(errs, fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err))
	}
	return errors.Join(errs...)
}

// substitute expands {fixtures} and {tmp} in a step argument.
func (testCtx *TestContext) substitute(s string) string {
	return strings.NewReplacer(
		"{fixtures}", testCtx.FixturesDir,
		"{tmp}", testCtx.TempDir,
	).Replace(s)
}

// fixturePath returns the path of a sample fixture by file name.
func (testCtx *TestContext) fixturePath(name string) (string, error) {
	path := filepath.Join(testCtx.FixturesDir, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("fixture not found: %s", name)
	}
	return path, nil
}
