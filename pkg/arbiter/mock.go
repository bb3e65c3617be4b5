package arbiter

import (
	"context"
	"sync"
)

// MockClient is a mock arbiter client for testing
type MockClient struct {
	mu       sync.Mutex
	verdict  *Verdict
	verdicts map[string]*Verdict // keyed by answer text
	judgeErr error
	baseURL  string
	calls    []Question
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithVerdict sets the verdict to return for every answer
func WithVerdict(v *Verdict) MockOption {
	return func(m *MockClient) {
		m.verdict = v
	}
}

// WithVerdictFor sets the verdict to return for a specific answer text
func WithVerdictFor(answer string, v *Verdict) MockOption {
	return func(m *MockClient) {
		if m.verdicts == nil {
			m.verdicts = make(map[string]*Verdict)
		}
		m.verdicts[answer] = v
	}
}

// WithJudgeError sets an error to return from Judge
func WithJudgeError(err error) MockOption {
	return func(m *MockClient) {
		m.judgeErr = err
	}
}

// NewMockClient creates a new mock arbiter client. Without options every
// answer is rejected with zero confidence.
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{
		baseURL: "http://mock-arbiter.local",
		verdict: &Verdict{Valid: false, Confidence: 0, Reason: "not recognized"},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BaseURL returns the configured base URL
func (m *MockClient) BaseURL() string {
	return m.baseURL
}

// Judge returns the configured verdict or error and records the call
func (m *MockClient) Judge(ctx context.Context, q Question) (*Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, q)
	if m.judgeErr != nil {
		return nil, m.judgeErr
	}
	if v, ok := m.verdicts[q.Answer]; ok {
		return v, nil
	}
	return m.verdict, nil
}

// Calls returns the questions judged so far (for testing)
func (m *MockClient) Calls() []Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Question(nil), m.calls...)
}

// Ensure MockClient implements Client
var _ Client = (*MockClient)(nil)
