// FILE: dest/http.go
package dest

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/relaylog/relay"
)

func init() {
	Register("http", newHTTPFacade)
}

// Default batch bounds for the HTTP push destination
var httpDefaultLimits = relay.Limits{
	MaxRecords: 1000,
	MaxBytes:   1024 * 1024,
}

const sequenceHeader = "X-Relay-Sequence"

// httpFacade delivers batches as ndjson POSTs to a push endpoint:
//
//	GET  {url}/streams/{name}   probe, response carries the sequence cursor
//	POST {url}/streams/{name}   create (ensure) or append (send)
//
// It implements relay.SequencedFacade: appends carry the last observed
// cursor, and a 409 conflict means another writer advanced it.
type httpFacade struct {
	cfg    relay.DestinationConfig
	limits relay.Limits
	client *fasthttp.Client

	resolveOnce sync.Once
	streamURL   string

	mu       sync.Mutex
	sequence string
}

func newHTTPFacade(cfg *relay.Config) (relay.Facade, error) {
	d := cfg.Destination
	if strings.TrimSpace(d.URL) == "" {
		return nil, relay.NewFacadeError("http.open", relay.ReasonInvalidConfiguration, false, nil,
			"http destination requires a url")
	}
	if strings.TrimSpace(d.Name) == "" {
		return nil, relay.NewFacadeError("http.open", relay.ReasonInvalidConfiguration, false, nil,
			"http destination requires a stream name")
	}

	return &httpFacade{
		cfg:    d,
		limits: batchLimits(d, httpDefaultLimits),
		client: &fasthttp.Client{
			MaxIdleConnDuration: 30 * time.Second,
		},
	}, nil
}

// endpoint resolves destination-name substitutions exactly once, on first
// use, so every call of the facade's lifetime targets the same stream.
func (f *httpFacade) endpoint() string {
	f.resolveOnce.Do(func() {
		name := relay.ResolveSubstitutions(f.cfg.Name)
		f.streamURL = strings.TrimRight(f.cfg.URL, "/") + "/streams/" + name
	})
	return f.streamURL
}

func (f *httpFacade) EnsureDestination(ctx context.Context) error {
	status, headers, err := f.do(ctx, fasthttp.MethodGet, f.endpoint(), nil, "")
	if err != nil {
		return classifyHTTPTransport("http.ensure", err)
	}

	switch {
	case status >= 200 && status < 300:
		f.storeSequence(headers[sequenceHeader])
		return nil
	case status == fasthttp.StatusNotFound:
		// Fall through to create
	default:
		return classifyHTTPStatus("http.ensure", status)
	}

	status, headers, err = f.do(ctx, fasthttp.MethodPost, f.endpoint(), nil, "")
	if err != nil {
		return classifyHTTPTransport("http.create", err)
	}
	switch {
	case status >= 200 && status < 300:
		f.storeSequence(headers[sequenceHeader])
		return nil
	case status == fasthttp.StatusConflict:
		// Another writer created it between probe and create
		return relay.NewFacadeError("http.create", relay.ReasonAlreadyExists, false, nil,
			"stream already exists")
	default:
		return classifyHTTPStatus("http.create", status)
	}
}

func (f *httpFacade) SendBatch(ctx context.Context, batch []relay.Record) error {
	body, err := encodeNDJSON(batch)
	if err != nil {
		return relay.NewFacadeError("http.send", relay.ReasonUnexpected, false, err,
			"failed to encode batch of %d records", len(batch))
	}

	status, headers, derr := f.do(ctx, fasthttp.MethodPost, f.endpoint(), body, f.loadSequence())
	if derr != nil {
		return classifyHTTPTransport("http.send", derr)
	}

	switch {
	case status >= 200 && status < 300:
		f.storeSequence(headers[sequenceHeader])
		return nil
	case status == fasthttp.StatusConflict:
		return relay.NewFacadeError("http.send", relay.ReasonConcurrentWriter, false, nil,
			"sequence conflict: another writer advanced the stream")
	default:
		return classifyHTTPStatus("http.send", status)
	}
}

// RefreshSequence re-fetches the stream cursor after a concurrent-writer
// conflict. Only shared writers call this.
func (f *httpFacade) RefreshSequence(ctx context.Context) error {
	status, headers, err := f.do(ctx, fasthttp.MethodGet, f.endpoint(), nil, "")
	if err != nil {
		return classifyHTTPTransport("http.refresh", err)
	}
	if status < 200 || status >= 300 {
		return classifyHTTPStatus("http.refresh", status)
	}
	f.storeSequence(headers[sequenceHeader])
	return nil
}

func (f *httpFacade) Limits() relay.Limits {
	return f.limits
}

func (f *httpFacade) Describe() string {
	return "http:" + f.cfg.Name
}

func (f *httpFacade) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// do issues one request bounded by the context deadline and returns the
// status plus the response headers the facade cares about.
func (f *httpFacade) do(ctx context.Context, method, url string, body []byte, sequence string) (int, map[string]string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	if body != nil {
		req.Header.SetContentType("application/x-ndjson")
		req.SetBody(body)
	}
	if sequence != "" {
		req.Header.Set(sequenceHeader, sequence)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(10 * time.Second)
	}
	if err := f.client.DoDeadline(req, resp, deadline); err != nil {
		return 0, nil, err
	}

	headers := map[string]string{
		sequenceHeader: string(resp.Header.Peek(sequenceHeader)),
	}
	return resp.StatusCode(), headers, nil
}

func (f *httpFacade) loadSequence() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sequence
}

func (f *httpFacade) storeSequence(seq string) {
	if seq == "" {
		return
	}
	f.mu.Lock()
	f.sequence = seq
	f.mu.Unlock()
}

type ndjsonLine struct {
	Timestamp time.Time `json:"ts"`
	Line      string    `json:"line"`
}

func encodeNDJSON(batch []relay.Record) ([]byte, error) {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	for _, r := range batch {
		if err := enc.Encode(ndjsonLine{Timestamp: r.Timestamp, Line: r.Text}); err != nil {
			return nil, err
		}
	}
	return []byte(b.String()), nil
}

// classifyHTTPStatus maps a response status to the shared taxonomy.
func classifyHTTPStatus(op string, status int) error {
	switch {
	case status == fasthttp.StatusTooManyRequests,
		status == fasthttp.StatusRequestTimeout,
		status == fasthttp.StatusServiceUnavailable,
		status == fasthttp.StatusBadGateway,
		status == fasthttp.StatusGatewayTimeout:
		return relay.NewFacadeError(op, relay.ReasonThrottling, true, nil,
			"endpoint rejected the call with status %d", status)
	case status == fasthttp.StatusNotFound, status == fasthttp.StatusGone:
		return relay.NewFacadeError(op, relay.ReasonMissingDestination, false, nil,
			"stream not found (status %d)", status)
	case status == fasthttp.StatusUnauthorized, status == fasthttp.StatusForbidden:
		return relay.NewFacadeError(op, relay.ReasonInvalidConfiguration, false, nil,
			"endpoint refused credentials (status %d)", status)
	case status == fasthttp.StatusNotImplemented:
		return relay.NewFacadeError(op, relay.ReasonUnexpected, false, nil,
			"endpoint does not support the operation (status %d)", status)
	case status >= 500:
		return relay.NewFacadeError(op, relay.ReasonUnexpected, true, nil,
			"server error (status %d)", status)
	default:
		return relay.NewFacadeError(op, relay.ReasonUnexpected, false, nil,
			"unexpected status %d", status)
	}
}

// classifyHTTPTransport maps dial/transport failures. All are retryable:
// the endpoint may come back.
func classifyHTTPTransport(op string, err error) error {
	return relay.NewFacadeError(op, relay.ReasonUnexpected, true, err, "request failed")
}
