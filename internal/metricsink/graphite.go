package metricsink

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultGraphitePort   = "2003"
	DefaultGraphitePrefix = "uptime"
)

// Graphite writes the plaintext protocol, either over TCP or as the body of
// an HTTP POST to a line-oriented ingestion endpoint.
type Graphite struct {
	Addr     string
	Protocol string // "tcp" or "http"
	Prefix   string
	Client   *http.Client
	Dialer   *net.Dialer
	Now      func() time.Time
}

// NewGraphite returns nil when host is empty: forwarding is disabled, which
// is not an error.
func NewGraphite(host, port, protocol, prefix string) *Graphite {
	if host == "" {
		return nil
	}
	if port == "" {
		port = DefaultGraphitePort
	}
	if prefix == "" {
		prefix = DefaultGraphitePrefix
	}
	protocol = strings.ToLower(protocol)
	if protocol != "http" {
		protocol = "tcp"
	}
	return &Graphite{
		Addr:     net.JoinHostPort(host, port),
		Protocol: protocol,
		Prefix:   prefix,
		Client:   &http.Client{Timeout: 10 * time.Second},
		Dialer:   &net.Dialer{Timeout: 5 * time.Second},
		Now:      time.Now,
	}
}

func (g *Graphite) Send(ctx context.Context, target Target, metrics map[string]float64) error {
	if g == nil || len(metrics) == 0 {
		return nil
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	payload := FormatLines(g.Prefix, target.Name, metrics, now())

	if g.Protocol == "http" {
		return g.post(ctx, payload)
	}
	return g.write(ctx, payload)
}

func (g *Graphite) write(ctx context.Context, payload string) error {
	d := g.Dialer
	if d == nil {
		d = &net.Dialer{}
	}
	conn, err := d.DialContext(ctx, "tcp", g.Addr)
	if err != nil {
		return fmt.Errorf("graphite dial: %w", err)
	}
	defer conn.Close()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(dl)
	}
	if _, err := conn.Write([]byte(payload)); err != nil {
		return fmt.Errorf("graphite write: %w", err)
	}
	return nil
}

func (g *Graphite) post(ctx context.Context, payload string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+g.Addr, bytes.NewReader([]byte(payload)))
	if err != nil {
		return fmt.Errorf("graphite request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("graphite post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("graphite non-2xx: %s", resp.Status)
	}
	return nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SanitizeName replaces every character outside [A-Za-z0-9_-] with '_'.
func SanitizeName(name string) string {
	return unsafeName.ReplaceAllString(name, "_")
}

// FormatLines renders "<prefix>.<name>.<metric> <value> <unix-seconds>\n"
// per metric, metrics sorted by key.
func FormatLines(prefix, monitor string, metrics map[string]float64, at time.Time) string {
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	name := SanitizeName(monitor)
	ts := strconv.FormatInt(at.Unix(), 10)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(prefix)
		b.WriteByte('.')
		b.WriteString(name)
		b.WriteByte('.')
		b.WriteString(k)
		b.WriteByte(' ')
		b.WriteString(strconv.FormatFloat(metrics[k], 'f', -1, 64))
		b.WriteByte(' ')
		b.WriteString(ts)
		b.WriteByte('\n')
	}
	return b.String()
}
