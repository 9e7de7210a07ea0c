package runner

import "time"

// TestSuite is one integration case file. It either lists Steps or references other
// case files through Cases.
type TestSuite struct {
	Name  string     `json:"name"`
	Steps []TestStep `json:"steps,omitempty"`
	Cases []string   `json:"cases,omitempty"`
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is a single request and its expected outcome.
type TestStep struct {
	Name         string            `json:"name,omitempty"`
	Method       string            `json:"method,omitempty"` // defaults to GET
	Path         string            `json:"path"`
	Query        map[string]string `json:"query,omitempty"`
	Expectations Expectations      `json:"expect"`
}

// Expectations defines what to check after a step executes.
type Expectations struct {
	Status *int `json:"status,omitempty"` // defaults to 200

	// Fields of a /v1/reachable response
	RegionsInclude []string `json:"regions_include,omitempty"`
	RegionsExclude []string `json:"regions_exclude,omitempty"`
	Starred        []string `json:"starred,omitempty"`

	ResponseContains    []string `json:"response_contains,omitempty"`
	ResponseNotContains []string `json:"response_not_contains,omitempty"`
	ResponseRegex       string   `json:"response_regex,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName     string
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job       TestJob
	Results   []TestResult
	Error     error
	Duration  time.Duration
	RequestID string // X-Request-ID sent with every step of the run
}
