package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrorKind classifies a failed text-service call for the batch retry policy.
type ErrorKind string

const (
	KindTimeout     ErrorKind = "timeout"
	KindRateLimit   ErrorKind = "rate_limit"
	KindMalformed   ErrorKind = "malformed"
	KindUnavailable ErrorKind = "unavailable"
	KindRejected    ErrorKind = "rejected" // 4xx other than 408/429; resending the same request cannot succeed
)

// Retryable reports whether another attempt may succeed.
func (k ErrorKind) Retryable() bool {
	return k != KindRejected
}

// ServiceError is returned for any failed text-service call.
type ServiceError struct {
	Group      string
	Kind       ErrorKind
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	b.WriteString("text service")
	if e.Group != "" {
		b.WriteString(" group ")
		b.WriteString(e.Group)
	}
	b.WriteString(": ")
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithGroup returns err with the group name attached. Non-service errors are wrapped as unavailable.
func WithGroup(err error, group string) error {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		cp := *se
		cp.Group = group
		return &cp
	}
	return &ServiceError{Group: group, Kind: ClassifyTransport(err), Err: err}
}

// ClassifyStatus maps a non-2xx HTTP status onto an ErrorKind.
func ClassifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return KindTimeout
	case status >= 500:
		return KindUnavailable
	case status >= 400:
		return KindRejected
	}
	return KindMalformed
}

// ClassifyTransport maps an error returned by http.Client.Do onto an ErrorKind.
func ClassifyTransport(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindUnavailable
}

// ParseRetryAfter reads a Retry-After header given in seconds or as an HTTP date.
func ParseRetryAfter(h http.Header, now time.Time) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}
