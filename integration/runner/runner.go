package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running slugrando API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job:       TestJob{Name: suite.Name, Suite: suite},
		Results:   make([]TestResult, 0, len(suite.Steps)),
		RequestID: uuid.New().String(),
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, result.RequestID, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if !stepResult.Success && r.ErrorHandlingMode == ErrorHandlingExit {
			result.Error = fmt.Errorf("step %d (%s) failed: %w", i+1, step.Name, stepResult.Error)
			break
		}
	}

	if result.Error == nil {
		for _, sr := range result.Results {
			if !sr.Success {
				result.Error = fmt.Errorf("step %s failed: %w", sr.StepName, sr.Error)
				break
			}
		}
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) runStep(ctx context.Context, requestID string, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	status, body, err := r.do(ctx, requestID, step)
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		return result
	}
	result.ResponseText = string(body)

	if err := validateExpectations(step.Expectations, status, body); err != nil {
		result.Error = err
		return result
	}
	result.Success = true
	return result
}

func (r *Runner) do(ctx context.Context, requestID string, step TestStep) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	method := step.Method
	if method == "" {
		method = http.MethodGet
	}
	target := r.BaseURL + step.Path
	if len(step.Query) > 0 {
		q := url.Values{}
		for k, v := range step.Query {
			q.Set(k, v)
		}
		target += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Request-ID", requestID)

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

type reachableBody struct {
	Regions []string `json:"regions"`
	Starred []string `json:"starred"`
}

func validateExpectations(expect Expectations, status int, body []byte) error {
	wantStatus := http.StatusOK
	if expect.Status != nil {
		wantStatus = *expect.Status
	}
	if status != wantStatus {
		return fmt.Errorf("status: expected %d, got %d (%s)", wantStatus, status, strings.TrimSpace(string(body)))
	}

	text := string(body)
	for _, s := range expect.ResponseContains {
		if !strings.Contains(text, s) {
			return fmt.Errorf("response does not contain %q", s)
		}
	}
	for _, s := range expect.ResponseNotContains {
		if strings.Contains(text, s) {
			return fmt.Errorf("response unexpectedly contains %q", s)
		}
	}
	if expect.ResponseRegex != "" {
		re, err := regexp.Compile(expect.ResponseRegex)
		if err != nil {
			return fmt.Errorf("invalid response_regex: %w", err)
		}
		if !re.MatchString(text) {
			return fmt.Errorf("response does not match %q", expect.ResponseRegex)
		}
	}

	if len(expect.RegionsInclude) == 0 && len(expect.RegionsExclude) == 0 && expect.Starred == nil {
		return nil
	}
	var got reachableBody
	if err := json.Unmarshal(body, &got); err != nil {
		return fmt.Errorf("failed to decode reachable response: %w", err)
	}
	for _, region := range expect.RegionsInclude {
		if !slices.Contains(got.Regions, region) {
			return fmt.Errorf("region %s not reached (got %v)", region, got.Regions)
		}
	}
	for _, region := range expect.RegionsExclude {
		if slices.Contains(got.Regions, region) {
			return fmt.Errorf("region %s unexpectedly reached", region)
		}
	}
	if expect.Starred != nil {
		want := slices.Clone(expect.Starred)
		slices.Sort(want)
		have := slices.Clone(got.Starred)
		slices.Sort(have)
		if !slices.Equal(want, have) {
			return fmt.Errorf("starred: expected %v, got %v", want, have)
		}
	}
	return nil
}
