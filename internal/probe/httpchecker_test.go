package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hamed0406/uptimemonitor/internal/domain"
)

func TestHTTPChecker_StatusOK(t *testing.T) {
	var ua string
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		if r.Method != http.MethodGet {
			t.Errorf("want GET, got %s", r.Method)
		}
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	}))
	defer s.Close()

	chk := NewHTTPChecker(2 * time.Second)
	out := chk.Check(context.Background(), s.URL)
	if out.Status != domain.StatusUp || !out.Responded {
		t.Fatalf("want UP, got %+v", out)
	}
	if out.StatusCode != 200 {
		t.Fatalf("want status 200, got %d", out.StatusCode)
	}
	if ua != DefaultUserAgent {
		t.Fatalf("want user agent %q, got %q", DefaultUserAgent, ua)
	}
	if out.Elapsed < 0 {
		t.Fatalf("elapsed should be >= 0, got %v", out.Elapsed)
	}
}

func TestHTTPChecker_ClassifiesByStatusCode(t *testing.T) {
	cases := []struct {
		code int
		want domain.Status
	}{
		{204, domain.StatusUp},
		{299, domain.StatusUp},
		{301, domain.StatusDown},
		{404, domain.StatusDown},
		{500, domain.StatusDown},
	}
	for _, c := range cases {
		code := c.code
		s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		out := NewHTTPChecker(2*time.Second).Check(context.Background(), s.URL)
		s.Close()

		if out.Status != c.want {
			t.Fatalf("code %d: want %s, got %+v", code, c.want, out)
		}
		if out.StatusCode != code {
			t.Fatalf("code %d: status code not retained: %+v", code, out)
		}
		cr := out.CheckResult("M1", time.Now())
		if cr.StatusCode == nil || *cr.StatusCode != code || cr.LatencyMS == nil {
			t.Fatalf("code %d: check result missing code/latency: %+v", code, cr)
		}
		if cr.ErrorMessage != "" {
			t.Fatalf("code %d: unexpected error message %q", code, cr.ErrorMessage)
		}
	}
}

func TestHTTPChecker_RedirectIsNotFollowed(t *testing.T) {
	hits := 0
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusMovedPermanently)
	}))
	defer s.Close()

	out := NewHTTPChecker(2*time.Second).Check(context.Background(), s.URL)
	if out.Status != domain.StatusDown || out.StatusCode != http.StatusMovedPermanently || !out.Responded {
		t.Fatalf("want DOWN with 301 retained, got %+v", out)
	}
	if hits != 0 {
		t.Fatalf("redirect target should not be requested, got %d hits", hits)
	}
}

func TestHTTPChecker_StalledBodyKeepsStatus(t *testing.T) {
	release := make(chan struct{})
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer s.Close()
	defer close(release)

	out := NewHTTPChecker(200*time.Millisecond).Check(context.Background(), s.URL)
	if out.Status != domain.StatusUp || !out.Responded || out.StatusCode != http.StatusOK {
		t.Fatalf("want UP with 200 retained, got %+v", out)
	}
	if !strings.Contains(out.Message, "timeout:") {
		t.Fatalf("read failure should be described, got %q", out.Message)
	}
	cr := out.CheckResult("M1", time.Now())
	if cr.StatusCode == nil || *cr.StatusCode != http.StatusOK || cr.LatencyMS == nil {
		t.Fatalf("check result missing code/latency: %+v", cr)
	}
}

func TestHTTPChecker_TimeoutIsDownWithoutStatus(t *testing.T) {
	release := make(chan struct{})
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer s.Close()
	defer close(release)

	chk := NewHTTPChecker(50 * time.Millisecond)
	out := chk.Check(context.Background(), s.URL)
	if out.Status != domain.StatusDown || out.Responded {
		t.Fatalf("want DOWN without response, got %+v", out)
	}
	if out.StatusCode != 0 {
		t.Fatalf("want status 0 on transport error, got %d", out.StatusCode)
	}
	if !strings.HasPrefix(out.Message, "timeout:") {
		t.Fatalf("want timeout message, got %q", out.Message)
	}
	if out.Elapsed < 50*time.Millisecond {
		t.Fatalf("elapsed should reach the timeout, got %v", out.Elapsed)
	}
}

func TestHTTPChecker_ConnectionErrorHasNoStatusCode(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	out := NewHTTPChecker(time.Second).Check(context.Background(), "http://"+addr)
	cr := out.CheckResult("M1", time.Now())
	if cr.Status != domain.StatusDown {
		t.Fatalf("want DOWN, got %s", cr.Status)
	}
	if cr.StatusCode != nil {
		t.Fatalf("want nil status code, got %d", *cr.StatusCode)
	}
	if cr.LatencyMS != nil {
		t.Fatalf("want nil latency, got %v", *cr.LatencyMS)
	}
	if cr.ErrorMessage == "" {
		t.Fatal("want error message")
	}
	m := out.Metrics()
	if m["error"] != 1 || m["status"] != 0 {
		t.Fatalf("unexpected metrics: %v", m)
	}
	if _, ok := m["statusCode"]; ok {
		t.Fatalf("statusCode metric should be absent: %v", m)
	}
}

func TestHTTPChecker_BadRequestIsError(t *testing.T) {
	out := NewHTTPChecker(time.Second).Check(context.Background(), "http://bad host/")
	if out.Status != domain.StatusError {
		t.Fatalf("want ERROR, got %+v", out)
	}
}

func TestOutcome_MetricsForResponse(t *testing.T) {
	out := Outcome{Status: domain.StatusUp, StatusCode: 200, Elapsed: 120 * time.Millisecond, Responded: true}
	m := out.Metrics()
	if m["status"] != 1 || m["statusCode"] != 200 || m["responseTime"] != 120 {
		t.Fatalf("unexpected metrics: %v", m)
	}
}
