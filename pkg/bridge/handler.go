package bridge

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/brendan.keane/apibridge/internal/errors"
	"github.com/brendan.keane/apibridge/internal/logger"
	"github.com/brendan.keane/apibridge/pkg/gateway"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Handler is the function entry point for one application
type Handler struct {
	app     http.Handler
	logger  zerolog.Logger
	verbose bool
}

// Option configures a Handler
type Option func(*Handler)

// WithLogger sets the logger used for invocation logs
func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// WithVerboseErrors makes the boundary include error details in the
// envelope body instead of the bare status text.
func WithVerboseErrors(verbose bool) Option {
	return func(h *Handler) {
		h.verbose = verbose
	}
}

// New returns a Handler serving app
func New(app http.Handler, opts ...Option) *Handler {
	h := &Handler{
		app:    app,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = logger.ForComponent(h.logger, "bridge")
	return h
}

// Invoke runs the pipeline for one invocation. Any failure is returned
// as is; no envelope is produced in that case.
func (h *Handler) Invoke(ctx context.Context, inv gateway.Invocation) (*gateway.Envelope, error) {
	ev, err := gateway.ParseInvocation(inv)
	if err != nil {
		return nil, err
	}
	return h.InvokeEvent(ctx, ev)
}

// InvokeEvent runs the pipeline for an already decoded event
func (h *Handler) InvokeEvent(ctx context.Context, ev *gateway.Event) (*gateway.Envelope, error) {
	if h.app == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "no application configured")
	}

	env, err := gateway.Translate(ev)
	if err != nil {
		return nil, err
	}

	req, err := env.Request(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := Dispatch(h.app, req)
	if err != nil {
		return nil, err
	}

	return gateway.Repack(resp), nil
}

// Handle is the error boundary around Invoke. It never returns an error:
// failures are logged and converted into an error envelope.
func (h *Handler) Handle(ctx context.Context, inv gateway.Invocation) (*gateway.Envelope, error) {
	log := logger.ForInvocation(h.logger, invocationID(ctx))
	start := time.Now()

	envelope, err := h.Invoke(ctx, inv)
	if err != nil {
		return h.fail(log, err), nil
	}

	log.Info().
		Int("status", envelope.StatusCode).
		Bool("base64", envelope.Encoding == gateway.EncodingBase64).
		Dur("duration", time.Since(start)).
		Msg("invocation complete")
	return envelope, nil
}

// HandleAPIGateway is Handle for API Gateway REST proxy events
func (h *Handler) HandleAPIGateway(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	log := logger.ForInvocation(h.logger, invocationID(ctx))
	start := time.Now()

	envelope, err := h.InvokeEvent(ctx, gateway.FromAPIGatewayProxy(req))
	if err != nil {
		return h.fail(log, err).APIGatewayProxyResponse(), nil
	}

	log.Info().
		Int("status", envelope.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("invocation complete")
	return envelope.APIGatewayProxyResponse(), nil
}

func (h *Handler) fail(log zerolog.Logger, err error) *gateway.Envelope {
	event := log.Error().Err(err).Str("type", string(errors.GetType(err)))
	for key, value := range errors.GetContext(err) {
		if key == "stack" && !h.verbose {
			continue
		}
		event = event.Interface(key, value)
	}
	event.Msg("invocation failed")

	return ErrorEnvelope(err, h.verbose)
}

// invocationID returns the platform request id, or a fresh one outside Lambda
func invocationID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}
