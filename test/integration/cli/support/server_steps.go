package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/particles/internal/pipeline"
	"github.com/MeKo-Tech/particles/internal/server"
)

// HTTPTestServerWrapper wraps httptest.Server for integration tests.
type HTTPTestServerWrapper struct {
	Server *httptest.Server
	Config server.Config
}

// defaultServerConfig mirrors the serve defaults with a small upload limit.
func defaultServerConfig() server.Config {
	return server.Config{
		Host:           "localhost",
		CORSOrigin:     "*",
		MaxUploadMB:    1,
		TimeoutSec:     10,
		PipelineConfig: pipeline.DefaultConfig(),
		OverlayEnabled: true,
	}
}

func (testCtx *TestContext) startServer(cfg server.Config) error {
	testCtx.StopServer()
	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server: httptest.NewServer(srv.Handler()),
		Config: cfg,
	}
	return nil
}

// StopServer closes the running test server, if any.
func (testCtx *TestContext) StopServer() {
	if testCtx.HTTPTestServer != nil {
		testCtx.HTTPTestServer.Server.Close()
		testCtx.HTTPTestServer = nil
	}
}

func (testCtx *TestContext) theServerIsRunning() error {
	return testCtx.startServer(defaultServerConfig())
}

func (testCtx *TestContext) theServerIsRunningWithOverlaysDisabled() error {
	cfg := defaultServerConfig()
	cfg.OverlayEnabled = false
	return testCtx.startServer(cfg)
}

func (testCtx *TestContext) theServerIsRunningWithRequestsPerMinute(n int) error {
	cfg := defaultServerConfig()
	cfg.RateLimit.RequestsPerMinute = n
	return testCtx.startServer(cfg)
}

func (testCtx *TestContext) url(path string) (string, error) {
	if testCtx.HTTPTestServer == nil {
		return "", fmt.Errorf("server is not running")
	}
	return testCtx.HTTPTestServer.Server.URL + path, nil
}

func (testCtx *TestContext) do(req *http.Request) error {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = map[string]string{}
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iGET(path string) error {
	u, err := testCtx.url(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

func (testCtx *TestContext) iMakeAnOPTIONSRequestTo(path string) error {
	u, err := testCtx.url(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodOptions, u, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

// postFiles uploads files (fixture names) in field, followed by the form values.
func (testCtx *TestContext) postFiles(path, field string, files [][2]string, values map[string]string) error {
	u, err := testCtx.url(path)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := w.CreateFormFile(field, f[0])
		if err != nil {
			return err
		}
		if _, err := io.WriteString(part, f[1]); err != nil {
			return err
		}
	}
	for k, v := range values {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, u, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) readFixture(name string) ([2]string, error) {
	path, err := testCtx.fixturePath(name)
	if err != nil {
		return [2]string{}, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: fixture path
	if err != nil {
		return [2]string{}, err
	}
	return [2]string{name, string(data)}, nil
}

func (testCtx *TestContext) iPOSTTheImageTo(name, path string) error {
	f, err := testCtx.readFixture(name)
	if err != nil {
		return err
	}
	return testCtx.postFiles(path, "image", [][2]string{f}, nil)
}

func (testCtx *TestContext) iPOSTTheImageToWith(name, path string, table *godog.Table) error {
	f, err := testCtx.readFixture(name)
	if err != nil {
		return err
	}
	values := map[string]string{}
	for _, row := range table.Rows {
		if len(row.Cells) != 2 {
			return fmt.Errorf("expected key/value rows, got %d cells", len(row.Cells))
		}
		values[row.Cells[0].Value] = row.Cells[1].Value
	}
	return testCtx.postFiles(path, "image", [][2]string{f}, values)
}

func (testCtx *TestContext) iPOSTTheImagesTo(names, path string) error {
	var files [][2]string
	for _, name := range strings.Split(names, ",") {
		f, err := testCtx.readFixture(strings.TrimSpace(name))
		if err != nil {
			return err
		}
		files = append(files, f)
	}
	return testCtx.postFiles(path, "images", files, nil)
}

func (testCtx *TestContext) iPOSTAnInvalidFileTo(path string) error {
	return testCtx.postFiles(path, "image", [][2]string{{"notes.txt", "not an image"}}, nil)
}

func (testCtx *TestContext) iPOSTAnImageLargerThanTheUploadLimitTo(path string) error {
	limit := int(testCtx.HTTPTestServer.Config.MaxUploadMB) << 20
	return testCtx.postFiles(path, "image", [][2]string{{"big.png", strings.Repeat("x", limit+1024)}}, nil)
}

func (testCtx *TestContext) theResponseStatusShouldBe(want int) error {
	if testCtx.LastHTTPStatusCode != want {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", want, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain %q\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, want string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]; got != want {
		return fmt.Errorf("header %s: expected %q, got %q", name, want, got)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldReportParticles(want int) error {
	var resp server.AnalyzeResponse
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &resp); err != nil {
		return fmt.Errorf("invalid analyze response: %w", err)
	}
	if !resp.Success || resp.Result == nil || resp.Summary == nil {
		return fmt.Errorf("analysis did not succeed: %s", resp.Error)
	}
	if len(resp.Result.Particles) != want || resp.Summary.Count != want {
		return fmt.Errorf("expected %d particles, got %d (summary %d)", want, len(resp.Result.Particles), resp.Summary.Count)
	}
	return nil
}

func (testCtx *TestContext) theBatchResponseShouldReportParticlesInTotal(want int) error {
	var resp server.BatchResponse
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &resp); err != nil {
		return fmt.Errorf("invalid batch response: %w", err)
	}
	if resp.Stats == nil {
		return fmt.Errorf("batch response has no stats: %s", resp.Error)
	}
	if resp.Stats.TotalParticles != want {
		return fmt.Errorf("expected %d particles in total, got %d", want, resp.Stats.TotalParticles)
	}
	return nil
}

// RegisterServerSteps registers the HTTP server steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the server is running$`, testCtx.theServerIsRunning)
	sc.Step(`^the server is running with overlays disabled$`, testCtx.theServerIsRunningWithOverlaysDisabled)
	sc.Step(`^the server is running with a limit of (\d+) requests? per minute$`,
		testCtx.theServerIsRunningWithRequestsPerMinute)

	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGET)
	sc.Step(`^I make an OPTIONS request to "([^"]*)"$`, testCtx.iMakeAnOPTIONSRequestTo)
	sc.Step(`^I POST the image "([^"]*)" to "([^"]*)"$`, testCtx.iPOSTTheImageTo)
	sc.Step(`^I POST the image "([^"]*)" to "([^"]*)" with:$`, testCtx.iPOSTTheImageToWith)
	sc.Step(`^I POST the images "([^"]*)" to "([^"]*)"$`, testCtx.iPOSTTheImagesTo)
	sc.Step(`^I POST an invalid file to "([^"]*)"$`, testCtx.iPOSTAnInvalidFileTo)
	sc.Step(`^I POST an image larger than the upload limit to "([^"]*)"$`,
		testCtx.iPOSTAnImageLargerThanTheUploadLimitTo)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response should report (\d+) particles?$`, testCtx.theResponseShouldReportParticles)
	sc.Step(`^the batch response should report (\d+) particles in total$`,
		testCtx.theBatchResponseShouldReportParticlesInTotal)
}
