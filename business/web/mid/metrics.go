package mid

import (
	"context"
	"net/http"
	"time"

	"github.com/ardanlabs/servicechain/business/sys/metrics"
	"github.com/ardanlabs/servicechain/business/sys/validate"
	"github.com/ardanlabs/servicechain/business/web/errs"
	"github.com/ardanlabs/servicechain/foundation/web"
)

// Metrics updates program counters. The api name is used as the path label
// so entity ids don't explode the label set. An empty name uses the path.
func Metrics(api string) web.Middleware {

	// This is the actual middleware function to be executed.
	m := func(handler web.Handler) web.Handler {

		// Create the handler that will be attached in the middleware chain.
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

			// Call the next handler.
			err := handler(ctx, w, r)

			status := http.StatusOK
			var since time.Duration
			if v, verr := web.GetValues(ctx); verr == nil {
				if v.StatusCode != 0 {
					status = v.StatusCode
				}
				since = time.Since(v.Now)
			}

			// Errors are translated further up the chain so the status is
			// derived here.
			if err != nil {
				status = errorStatus(err)
			}

			path := api
			if path == "" {
				path = r.URL.Path
			}

			metrics.AddRequest(r.Method, path, status, since)

			// Increment the errors counter if an error occurred on this request.
			if err != nil {
				metrics.AddError()
			}

			// Return the error so it can be handled further up the chain.
			return err
		}

		return h
	}

	return m
}

func errorStatus(err error) int {
	switch {
	case validate.IsFieldErrors(err):
		return http.StatusBadRequest
	case errs.IsTrusted(err):
		return errs.GetTrusted(err).Status
	}

	return http.StatusInternalServerError
}
