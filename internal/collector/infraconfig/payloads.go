package infraconfig

// commonPaths is the ~10-entry path set the CRLF injection and
// X-Accel-Redirect probes sweep (§4.7).
var commonPaths = []string{
	"/", "/index.html", "/robots.txt", "/favicon.ico", "/api/",
	"/static/", "/assets/", "/login", "/admin", "/health",
}

// crlfPayloads is the five CRLF-injection variants tried against root
// and each of commonPaths; success is either the injected header name
// reflected verbatim or a Set-Cookie echoing the injected cookie.
var crlfPayloads = []string{
	"%0d%0aX-Injected: crlf-test",
	"%0d%0aSet-Cookie: test=injected",
	"%0a%0dX-Injected: crlf-test",
	"/%2e%2e%0d%0aX-Injected: crlf-test",
	"%E5%98%8A%E5%98%8DX-Injected: crlf-test", // overlong UTF-8 CRLF bypass
}

// hopByHopHeaders is the ten client-controlled headers fuzzed with each
// of spoofedIPs to look for access-control or logging bypass deltas.
var hopByHopHeaders = []string{
	"X-Forwarded-For", "X-Real-IP", "X-Client-IP", "X-Forwarded-Host",
	"X-Originating-IP", "X-Remote-IP", "X-Remote-Addr", "True-Client-IP",
	"CF-Connecting-IP", "X-Cluster-Client-IP",
}

// spoofedIPs is the fixed set of values tried in each hopByHopHeaders
// header, covering loopback, RFC1918, and the link-local cloud
// metadata address.
var spoofedIPs = []string{"127.0.0.1", "10.0.0.1", "192.168.1.1", "169.254.169.254"}

// traversalPayloads is the merge-slashes path-traversal pattern set used
// to detect nginx `merge_slashes off` misconfigurations.
var traversalPayloads = []string{
	"/..%2f..%2f..%2f..%2fetc%2fpasswd",
	"//..%2f..%2f..%2f..%2fetc/passwd",
	"/%2e%2e/%2e%2e/%2e%2e/%2e%2e/etc/passwd",
	"/..;/..;/..;/..;/etc/passwd",
	"/.../.../.../.../etc/passwd",
}

// traversalMarkers are filesystem-content fingerprints that confirm a
// traversal payload reached a real file rather than a 404/baseline page.
var traversalMarkers = []string{"root:", "bin/bash", "[extensions]", "daemon:"}

// securityHeaders is the fixed list of 7 security-relevant response
// headers the scoring pass checks for, grounded on the teacher's
// r3e-network-service_layer security-headers middleware default set
// (`infrastructure/middleware/security_headers.go`), trimmed to the
// seven §4.7 names and weighted by how exploitable their absence is.
var securityHeaders = []struct {
	Name   string
	Weight float64 // points subtracted from 100 when missing
}{
	{"Strict-Transport-Security", 15},
	{"Content-Security-Policy", 20},
	{"X-Content-Type-Options", 10},
	{"X-Frame-Options", 15},
	{"Referrer-Policy", 10},
	{"Permissions-Policy", 10},
	{"X-XSS-Protection", 5},
}

// phpMarkers are body/header fingerprints used for the informational
// PHP-detection check.
var phpMarkers = []string{"X-Powered-By: PHP", ".php", "PHPSESSID"}
