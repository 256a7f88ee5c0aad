package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/brendan.keane/apibridge/pkg/gateway"
)

// MockLambdaInvoker stands in for the Lambda API client
type MockLambdaInvoker struct {
	Payload       []byte
	FunctionError string
	Error         error
	Inputs        []*lambda.InvokeInput
}

// Invoke records the input and returns the configured payload
func (m *MockLambdaInvoker) Invoke(ctx context.Context, in *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error) {
	m.Inputs = append(m.Inputs, in)
	if m.Error != nil {
		return nil, m.Error
	}
	out := &lambda.InvokeOutput{
		StatusCode: 200,
		Payload:    m.Payload,
	}
	if m.FunctionError != "" {
		out.FunctionError = aws.String(m.FunctionError)
	}
	return out, nil
}

// LastInvocation decodes the invocation sent with the most recent call
func (m *MockLambdaInvoker) LastInvocation() (gateway.Invocation, error) {
	var inv gateway.Invocation
	if len(m.Inputs) == 0 {
		return inv, nil
	}
	err := json.Unmarshal(m.Inputs[len(m.Inputs)-1].Payload, &inv)
	return inv, err
}

// NewMockLambdaInvoker returns an invoker answering with env
func NewMockLambdaInvoker(env *gateway.Envelope) *MockLambdaInvoker {
	payload, err := json.Marshal(env)
	if err != nil {
		panic(err)
	}
	return &MockLambdaInvoker{Payload: payload}
}

// RecordingScoper is an application that binds per-request state and
// counts how often its context is pushed and popped.
type RecordingScoper struct {
	Handler http.Handler
	PushErr error

	mu     sync.Mutex
	pushes int
	pops   int
	active int
	errs   []error
}

type scopeKey struct{}

// PushContext binds a scope marker to the request
func (s *RecordingScoper) PushContext(r *http.Request) (*http.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pushes++
	if s.PushErr != nil {
		return nil, s.PushErr
	}
	s.active++
	return r.WithContext(context.WithValue(r.Context(), scopeKey{}, s.pushes)), nil
}

// PopContext releases the scope and records the dispatch error
func (s *RecordingScoper) PopContext(r *http.Request, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pops++
	s.active--
	s.errs = append(s.errs, err)
}

func (s *RecordingScoper) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Context().Value(scopeKey{}) == nil {
		http.Error(w, "unscoped request", http.StatusInternalServerError)
		return
	}
	s.Handler.ServeHTTP(w, r)
}

// Counts returns pushes, pops and currently active scopes
func (s *RecordingScoper) Counts() (pushes, pops, active int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushes, s.pops, s.active
}

// PopErrors returns the errors handed to PopContext in call order
func (s *RecordingScoper) PopErrors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}
