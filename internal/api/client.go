package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/jgoulah/gridcarbon/pkg/models"
)

// carbonPathLayout is the ISO-8601 form the carbon intensity API accepts in paths
const carbonPathLayout = "2006-01-02T15:04Z"

func newRestyClient() *resty.Client {
	return resty.New().
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
}

// Logf receives one line per request when a client is asked to trace its calls
type Logf func(format string, args ...interface{})

// getJSON executes a prepared GET and decodes the body into out.
// Transport failures and non-2xx statuses become NetworkError, decode failures ParseError.
func getJSON(ctx context.Context, req *resty.Request, op, url string, logf Logf, out interface{}) error {
	if logf != nil {
		logf("Requesting %s", url)
	}

	resp, err := req.SetContext(ctx).Get(url)
	if err != nil {
		return &models.NetworkError{Op: op, URL: url, Err: err}
	}

	if !resp.IsSuccess() {
		body := string(resp.Body())
		if len(body) > 200 {
			body = body[:200]
		}
		return &models.NetworkError{
			Op:         op,
			URL:        url,
			StatusCode: resp.StatusCode(),
			Err:        errors.Errorf("response: %s", body),
		}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return &models.ParseError{Op: op, Err: errors.Wrap(err, "decoding response body")}
	}

	return nil
}

// parseAPITime accepts RFC3339 (with or without fractional seconds) and the
// minute-precision form used by the carbon intensity API
func parseAPITime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(carbonPathLayout, s)
	if err != nil {
		return time.Time{}, errors.Errorf("invalid timestamp %q", s)
	}
	return t, nil
}
