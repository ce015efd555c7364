package transcriber

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"

	"hark/log"
)

// uploadClient posts recordings over kept-alive connections and notes where
// each request spent its time.
type uploadClient struct {
	http *http.Client
}

func newUploadClient() *uploadClient {
	return &uploadClient{http: &http.Client{
		Timeout: 2 * time.Minute,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}}
}

type reply struct {
	status  int
	header  http.Header
	body    []byte
	timings log.NetworkTimings
}

func (c *uploadClient) do(req *http.Request) (*reply, error) {
	var t log.NetworkTimings
	var dnsStart, tlsStart, sent time.Time
	trace := &httptrace.ClientTrace{
		GotConn:              func(info httptrace.GotConnInfo) { t.ConnReused = info.Reused },
		DNSStart:             func(httptrace.DNSStartInfo) { dnsStart = time.Now() },
		DNSDone:              func(httptrace.DNSDoneInfo) { t.DNSMs = ms(time.Since(dnsStart)) },
		TLSHandshakeStart:    func() { tlsStart = time.Now() },
		TLSHandshakeDone:     func(tls.ConnectionState, error) { t.TLSMs = ms(time.Since(tlsStart)) },
		WroteRequest:         func(httptrace.WroteRequestInfo) { sent = time.Now() },
		GotFirstResponseByte: func() { t.TTFBMs = ms(time.Since(sent)) },
	}

	start := time.Now()
	resp, err := c.http.Do(req.WithContext(httptrace.WithClientTrace(req.Context(), trace)))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	t.TotalMs = ms(time.Since(start))
	return &reply{status: resp.StatusCode, header: resp.Header, body: body, timings: t}, nil
}

// warm sends a HEAD so the first upload skips the handshake. It returns the
// round trip, zero on failure.
func (c *uploadClient) warm(url string) time.Duration {
	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return 0
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return time.Since(start)
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
