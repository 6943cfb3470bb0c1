// Package security flags probing requests and sets response hardening
// headers.
package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
)

var (
	suspiciousPatterns = []string{
		"../", "..\\", ".env", "wp-admin", "wp-login", "phpmyadmin",
		".php", ".git", ".ssh", "eval(", "javascript:", "<script",
		"union select", "etc/passwd", "cmd.exe", "/cgi-bin",
	}
	scannerAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab",
	}
	unusualMethods = map[string]bool{
		"TRACE": true, "TRACK": true, "DEBUG": true, "CONNECT": true,
	}
)

const (
	maxURLLength = 2048
	maxProxyHops = 5
)

// Detector recognizes scanner traffic and resolves the client IP behind
// trusted proxies.
type Detector struct {
	suspicious     atomic.Int64
	trustedProxies []*net.IPNet
	onSuspicious   func(*http.Request, string)
}

// NewDetector trusts loopback and private ranges as proxies.
func NewDetector() *Detector {
	d := &Detector{}
	for _, cidr := range []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"} {
		if err := d.AddTrustedProxy(cidr); err != nil {
			panic(err)
		}
	}
	return d
}

// OnSuspicious registers a callback run for every flagged request with the
// reason it was flagged.
func (d *Detector) OnSuspicious(fn func(r *http.Request, reason string)) {
	d.onSuspicious = fn
}

// Inspect returns why r looks like probing, or "" when it does not.
func (d *Detector) Inspect(r *http.Request) string {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, p := range suspiciousPatterns {
		if strings.Contains(path, p) {
			return "path:" + p
		}
		if strings.Contains(query, p) {
			return "query:" + p
		}
	}

	ua := strings.ToLower(r.Header.Get("User-Agent"))
	for _, a := range scannerAgents {
		if strings.Contains(ua, a) {
			return "agent:" + a
		}
	}

	if unusualMethods[r.Method] {
		return "method:" + r.Method
	}
	if len(r.URL.String()) > maxURLLength {
		return "url_length"
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > maxProxyHops {
		return "proxy_hops"
	}
	return ""
}

// DetectSuspiciousRequest counts and reports r when Inspect flags it.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	reason := d.Inspect(r)
	if reason == "" {
		return false
	}
	d.suspicious.Add(1)
	if d.onSuspicious != nil {
		d.onSuspicious(r, reason)
	}
	return true
}

// SuspiciousCount is the number of flagged requests so far.
func (d *Detector) SuspiciousCount() int64 {
	return d.suspicious.Load()
}

// Middleware flags requests without blocking them; probes are answered by
// the normal 404 path.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d.DetectSuspiciousRequest(r)
		next.ServeHTTP(w, r)
	})
}

// ExtractClientIP returns the remote address, or the first forwarded address
// when the connection comes from a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	direct, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		direct = r.RemoteAddr
	}
	ip := net.ParseIP(direct)
	if ip == nil || !d.isTrustedProxy(ip) {
		return direct
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return direct
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, n := range d.trustedProxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func (d *Detector) AddTrustedProxy(cidr string) error {
	_, n, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, n)
	return nil
}
