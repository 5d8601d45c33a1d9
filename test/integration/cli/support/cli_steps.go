package support

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/particles/cmd/particles/cmd"
	"github.com/MeKo-Tech/particles/internal/pipeline"
)

// iRunCommand runs a particles command line in-process on a fresh root command.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substitute(command)
	testCtx.LastCommand = command

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}
	if parts[0] != "particles" {
		return fmt.Errorf("unsupported command %q", parts[0])
	}

	root := cmd.GetRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(parts[1:])

	start := time.Now()
	err := root.Execute()
	testCtx.LastDuration = time.Since(start)
	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.LastError = err
	testCtx.LastExitCode = 0
	if err != nil {
		testCtx.LastExitCode = 1
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command %q failed: %w\nStderr: %s", testCtx.LastCommand, testCtx.LastError, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command %q succeeded when it should have failed\nOutput: %s", testCtx.LastCommand, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theErrorShouldMention(text string) error {
	if testCtx.LastError == nil {
		return errors.New("no error was returned")
	}
	if !strings.Contains(testCtx.LastError.Error(), text) {
		return fmt.Errorf("error %q does not mention %q", testCtx.LastError, text)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(text string) error {
	if !strings.Contains(testCtx.LastOutput, testCtx.substitute(text)) {
		return fmt.Errorf("output does not contain %q\nOutput: %s", text, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output contains %q\nOutput: %s", text, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theLogsShouldContain(text string) error {
	if !strings.Contains(testCtx.LastStderr, text) {
		return fmt.Errorf("stderr does not contain %q\nStderr: %s", text, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	if !json.Valid([]byte(testCtx.LastOutput)) {
		return fmt.Errorf("output is not valid JSON\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

// results decodes the JSON output as one result or a list of results.
func (testCtx *TestContext) results() ([]*pipeline.Result, error) {
	out := strings.TrimSpace(testCtx.LastOutput)
	if strings.HasPrefix(out, "[") {
		var results []*pipeline.Result
		if err := json.Unmarshal([]byte(out), &results); err != nil {
			return nil, fmt.Errorf("failed to decode results: %w", err)
		}
		return results, nil
	}
	var res pipeline.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return []*pipeline.Result{&res}, nil
}

func (testCtx *TestContext) theJSONShouldReportParticles(want int) error {
	results, err := testCtx.results()
	if err != nil {
		return err
	}
	if len(results) != 1 {
		return fmt.Errorf("expected one result, got %d", len(results))
	}
	if got := len(results[0].Particles); got != want {
		return fmt.Errorf("expected %d particles, got %d", want, got)
	}
	return nil
}

func (testCtx *TestContext) theJSONShouldContainResults(want int) error {
	results, err := testCtx.results()
	if err != nil {
		return err
	}
	if len(results) != want {
		return fmt.Errorf("expected %d results, got %d", want, len(results))
	}
	return nil
}

func (testCtx *TestContext) theResultForShouldReportParticles(name string, want int) error {
	results, err := testCtx.results()
	if err != nil {
		return err
	}
	for _, res := range results {
		if filepath.Base(res.Source) == name {
			if got := len(res.Particles); got != want {
				return fmt.Errorf("%s: expected %d particles, got %d", name, want, got)
			}
			return nil
		}
	}
	return fmt.Errorf("no result for %s", name)
}

func (testCtx *TestContext) theParticleAreasShouldStartWith(areas string) error {
	results, err := testCtx.results()
	if err != nil {
		return err
	}
	want := strings.Split(areas, ",")
	particles := results[0].Particles
	if len(particles) < len(want) {
		return fmt.Errorf("expected at least %d particles, got %d", len(want), len(particles))
	}
	for i, w := range want {
		if got := fmt.Sprint(particles[i].Area); got != strings.TrimSpace(w) {
			return fmt.Errorf("particle %d: expected area %s, got %s", i, w, got)
		}
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeCSVWithRows(want int) error {
	return checkCSV(testCtx.LastOutput, want)
}

func checkCSV(data string, want int) error {
	records, err := csv.NewReader(strings.NewReader(data)).ReadAll()
	if err != nil {
		return fmt.Errorf("invalid CSV: %w", err)
	}
	if len(records) == 0 || strings.Join(records[0], ",") != strings.Join(pipeline.CSVHeader, ",") {
		return fmt.Errorf("missing CSV header in %q", data)
	}
	if got := len(records) - 1; got != want {
		return fmt.Errorf("expected %d CSV rows, got %d", want, got)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldExist(path string) error {
	path = testCtx.substitute(path)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file %s does not exist", path)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldBeCSVWithRows(path string, want int) error {
	data, err := os.ReadFile(testCtx.substitute(path)) //nolint:gosec // G304: scenario temp path
	if err != nil {
		return err
	}
	return checkCSV(string(data), want)
}

func (testCtx *TestContext) aFileContaining(path string, content *godog.DocString) error {
	path = testCtx.substitute(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content.Content), 0o600)
}

func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	return testCtx.SetEnv(name, value)
}

// RegisterCLISteps registers the command line steps.
func (testCtx *TestContext) RegisterCLISteps(sc *godog.ScenarioContext) {
	// Setup
	sc.Step(`^the sample images are available$`, func() error {
		_, err := testCtx.fixturePath("default.png")
		return err
	})
	sc.Step(`^a file "([^"]*)" containing:$`, testCtx.aFileContaining)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)

	// Execution
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)

	// Output
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the logs should contain "([^"]*)"$`, testCtx.theLogsShouldContain)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON should report (\d+) particles?$`, testCtx.theJSONShouldReportParticles)
	sc.Step(`^the JSON should contain (\d+) results?$`, testCtx.theJSONShouldContainResults)
	sc.Step(`^the result for "([^"]*)" should report (\d+) particles?$`, testCtx.theResultForShouldReportParticles)
	sc.Step(`^the particle areas should start with ([0-9, ]+)$`, testCtx.theParticleAreasShouldStartWith)
	sc.Step(`^the output should be CSV with (\d+) rows?$`, testCtx.theOutputShouldBeCSVWithRows)

	// Files
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should be CSV with (\d+) rows?$`, testCtx.theFileShouldBeCSVWithRows)
}
