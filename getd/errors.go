package getd

import (
	"fmt"
	"time"

	"github.com/carusyte/stockchart/model"
)

//NotFoundError is returned when an identifier matches no listed stock.
type NotFoundError struct {
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no stock matches identifier %q", e.Identifier)
}

//RateLimitExceededError is returned when the API keeps rejecting calls for
//exceeding its quota until the retry attempts are exhausted.
type RateLimitExceededError struct {
	API      string
	Attempts int
	Err      error
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded calling %s after %d attempts: %v", e.API, e.Attempts, e.Err)
}

func (e *RateLimitExceededError) Unwrap() error {
	return e.Err
}

//APIError is a non-recoverable failure reported by the market data API.
type APIError struct {
	API string
	//Code is the API level error code, 0 if the failure happened at HTTP level.
	Code int
	//Status is the HTTP status code.
	Status int
	Msg    string
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s failed with code %d: %s", e.API, e.Code, e.Msg)
	}
	return fmt.Sprintf("%s failed with http status %d: %s", e.API, e.Status, e.Msg)
}

//InvalidRangeError is returned when the query start date is after its end date.
type InvalidRangeError struct {
	Start, End time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: start %s is after end %s",
		e.Start.Format(model.DateFormat), e.End.Format(model.DateFormat))
}

//IOError wraps file system failures while reading or writing data files.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// rateLimitError marks a single rejected call, it is retried by Provider.
type rateLimitError struct {
	api    string
	status int
	msg    string
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (http %d): %s", e.api, e.status, e.msg)
}
