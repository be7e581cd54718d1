package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/hamed0406/uptimemonitor/internal/domain"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "UptimeMonitor/1.0"
)

type HTTPChecker struct {
	Client    *http.Client
	Timeout   time.Duration
	UserAgent string
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPChecker{
		Client: &http.Client{
			Timeout: timeout,
			// a redirect is reported as-is, never followed
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Timeout:   timeout,
		UserAgent: DefaultUserAgent,
	}
}

// Check issues a single GET. There are no retries: a timeout is final for
// this round.
func (h *HTTPChecker) Check(ctx context.Context, target string) Outcome {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Outcome{Status: domain.StatusError, Message: "request: " + err.Error()}
	}
	req.Header.Set("User-Agent", h.UserAgent)

	start := time.Now()
	resp, err := h.Client.Do(req)
	if err != nil {
		return Outcome{Status: domain.StatusDown, Elapsed: time.Since(start), Message: describe(ctx, err)}
	}
	defer resp.Body.Close()

	status := domain.StatusDown
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		status = domain.StatusUp
	}
	msg := resp.Status

	// elapsed is measured to the final body byte, or to the failed read;
	// the status line already decided the outcome
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		msg = fmt.Sprintf("%s (body read: %s)", resp.Status, describe(ctx, err))
	}
	return Outcome{
		Status:     status,
		StatusCode: resp.StatusCode,
		Elapsed:    time.Since(start),
		Responded:  true,
		Message:    msg,
	}
}

// describe prefixes a transport error with its class.
func describe(ctx context.Context, err error) string {
	var (
		dnsErr  *net.DNSError
		certErr *tls.CertificateVerificationError
		hostErr x509.HostnameError
		authErr x509.UnknownAuthorityError
		recErr  tls.RecordHeaderError
		netErr  net.Error
	)
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Sprintf("timeout: %v", err)
	case errors.As(err, &dnsErr):
		return fmt.Sprintf("dns: %v", err)
	case errors.As(err, &certErr), errors.As(err, &hostErr), errors.As(err, &authErr), errors.As(err, &recErr):
		return fmt.Sprintf("tls: %v", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Sprintf("timeout: %v", err)
	default:
		return fmt.Sprintf("connection: %v", err)
	}
}
