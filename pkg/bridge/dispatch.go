// Package bridge runs an http.Handler application behind a serverless
// gateway: it wires the event translator, the application and the
// response repacker together behind a single error boundary.
package bridge

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/brendan.keane/apibridge/internal/errors"
	"github.com/brendan.keane/apibridge/pkg/gateway"
)

// Scoper is implemented by applications that bind per-request state.
// PushContext runs before dispatch and may return a derived request;
// PopContext runs after dispatch on every exit path and receives the
// dispatch error, if any.
type Scoper interface {
	http.Handler
	PushContext(r *http.Request) (*http.Request, error)
	PopContext(r *http.Request, err error)
}

// Dispatch runs one request through app and records the response.
// Panics raised by the application are returned as application errors
// instead of being swallowed, so the caller's boundary sees every failure.
func Dispatch(app http.Handler, req *http.Request) (resp *gateway.Response, err error) {
	if scoped, ok := app.(Scoper); ok {
		return dispatchScoped(scoped, req)
	}
	return serve(app, req)
}

func dispatchScoped(app Scoper, req *http.Request) (resp *gateway.Response, err error) {
	scopedReq, pushErr := app.PushContext(req)
	if pushErr != nil {
		return nil, errors.Wrap(pushErr, errors.ErrorTypeApplication, "failed to push request context")
	}
	if scopedReq == nil {
		scopedReq = req
	}
	defer func() {
		app.PopContext(scopedReq, err)
	}()

	return serve(app, scopedReq)
}

func serve(app http.Handler, req *http.Request) (resp *gateway.Response, err error) {
	w := gateway.NewResponseWriter()

	defer func() {
		if rec := recover(); rec != nil {
			resp = nil
			err = panicError(rec)
		}
	}()

	app.ServeHTTP(w, req)
	return w.Result(), nil
}

func panicError(rec interface{}) error {
	cause, ok := rec.(error)
	if !ok {
		cause = fmt.Errorf("%v", rec)
	}
	return errors.Wrap(cause, errors.ErrorTypeApplication, "application panicked").
		WithContext("stack", string(debug.Stack()))
}
