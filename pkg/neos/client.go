package neos

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/rpc"
	"strconv"
	"strings"
	"time"

	"github.com/kolo/xmlrpc"
)

// XML-RPC method names.
const (
	MethodSubmitJob              = "submitJob"
	MethodGetIntermediateResults = "getIntermediateResults"
	MethodGetJobStatus           = "getJobStatus"
	MethodGetFinalResults        = "getFinalResults"
	MethodListAllSolvers         = "listAllSolvers"
	MethodListCategories         = "listCategories"
	MethodPing                   = "ping"
)

// Config configures a Client.
type Config struct {
	// Endpoint is the XML-RPC URL. Empty uses DefaultEndpoint.
	Endpoint string

	// Timeout bounds how long a single call waits for response headers.
	// Zero means no limit; getIntermediateResults may legitimately block
	// until the solver produces output.
	Timeout time.Duration

	// Transport overrides the HTTP transport (tests, proxies).
	Transport http.RoundTripper
}

// Client is an XML-RPC channel to a NEOS server.
//
// Client is safe for concurrent use; calls are multiplexed by net/rpc.
type Client struct {
	rpc      *xmlrpc.Client
	endpoint string
}

// New creates a client for cfg.Endpoint. No network I/O happens until the
// first call.
func New(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	transport := cfg.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.Timeout > 0 {
			t.ResponseHeaderTimeout = cfg.Timeout
		}
		transport = t
	}

	c, err := xmlrpc.NewClient(endpoint, transport)
	if err != nil {
		return nil, fmt.Errorf("create NEOS client for %s: %w", endpoint, err)
	}
	return &Client{rpc: c, endpoint: endpoint}, nil
}

// Endpoint returns the XML-RPC URL the client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Close releases the underlying connection state.
func (c *Client) Close() error {
	return c.rpc.Close()
}

// SubmitJob sends a submission document and returns the issued handle.
func (c *Client) SubmitJob(ctx context.Context, document string) (Handle, error) {
	var reply []any
	if err := c.call(ctx, MethodSubmitJob, []any{document}, &reply); err != nil {
		return Handle{}, err
	}
	if len(reply) != 2 {
		return Handle{}, malformed(MethodSubmitJob, "expected [jobNumber, password], got %d values", len(reply))
	}
	number, err := asInt(reply[0])
	if err != nil {
		return Handle{}, malformed(MethodSubmitJob, "job number: %v", err)
	}
	password, err := asString(reply[1])
	if err != nil {
		return Handle{}, malformed(MethodSubmitJob, "password: %v", err)
	}
	// NEOS reports submission errors as job number 0 with the message in
	// the password slot.
	if number == 0 {
		return Handle{}, &RemoteError{Method: MethodSubmitJob, Message: strings.TrimSpace(password), Err: ErrRemoteRejection}
	}
	return Handle{JobNumber: number, Password: password}, nil
}

// GetIntermediateResults returns output produced since offset, and the
// offset to pass on the next call.
func (c *Client) GetIntermediateResults(ctx context.Context, h Handle, offset int) ([]byte, int, error) {
	var reply []any
	if err := c.call(ctx, MethodGetIntermediateResults, []any{h.JobNumber, h.Password, offset}, &reply); err != nil {
		return nil, offset, err
	}
	if len(reply) != 2 {
		return nil, offset, malformed(MethodGetIntermediateResults, "expected [data, offset], got %d values", len(reply))
	}
	chunk, err := asBytes(reply[0])
	if err != nil {
		return nil, offset, malformed(MethodGetIntermediateResults, "data: %v", err)
	}
	next, err := asInt(reply[1])
	if err != nil {
		return nil, offset, malformed(MethodGetIntermediateResults, "offset: %v", err)
	}
	return chunk, next, nil
}

// GetJobStatus returns the job's current status.
func (c *Client) GetJobStatus(ctx context.Context, h Handle) (Status, error) {
	var reply any
	if err := c.call(ctx, MethodGetJobStatus, []any{h.JobNumber, h.Password}, &reply); err != nil {
		return "", err
	}
	s, err := asString(reply)
	if err != nil {
		return "", malformed(MethodGetJobStatus, "%v", err)
	}
	return Status(strings.TrimSpace(s)), nil
}

// GetFinalResults returns the job's complete output.
func (c *Client) GetFinalResults(ctx context.Context, h Handle) ([]byte, error) {
	var reply any
	if err := c.call(ctx, MethodGetFinalResults, []any{h.JobNumber, h.Password}, &reply); err != nil {
		return nil, err
	}
	b, err := asBytes(reply)
	if err != nil {
		return nil, malformed(MethodGetFinalResults, "%v", err)
	}
	return b, nil
}

// Ping checks that the server is alive and returns its greeting.
func (c *Client) Ping(ctx context.Context) (string, error) {
	var reply any
	if err := c.call(ctx, MethodPing, nil, &reply); err != nil {
		return "", err
	}
	s, err := asString(reply)
	if err != nil {
		return "", malformed(MethodPing, "%v", err)
	}
	return strings.TrimSpace(s), nil
}

// call issues one XML-RPC call and waits for it or for ctx.
//
// When ctx ends first the call is abandoned; the server may still process
// it.
func (c *Client) call(ctx context.Context, method string, args []any, reply any) error {
	var params any
	if len(args) > 0 {
		params = args
	}
	call := c.rpc.Go(method, params, reply, make(chan *rpc.Call, 1))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-call.Done:
	}
	if call.Error != nil {
		return classify(method, call.Error)
	}
	return nil
}

// classify maps library errors to RemoteError.
//
// net/rpc surfaces XML-RPC faults and non-2xx HTTP replies as
// rpc.ServerError; the latter is a transport problem, not a refusal.
func classify(method string, err error) error {
	var serverErr rpc.ServerError
	if errors.As(err, &serverErr) {
		msg := string(serverErr)
		if strings.HasPrefix(msg, "request error:") {
			return &RemoteError{Method: method, Err: ErrTransport, Cause: err}
		}
		return &RemoteError{Method: method, Message: msg, Err: ErrRemoteRejection}
	}
	return &RemoteError{Method: method, Err: ErrTransport, Cause: err}
}

func malformed(method, format string, args ...any) error {
	return &RemoteError{
		Method:  method,
		Message: "malformed response: " + fmt.Sprintf(format, args...),
		Err:     ErrTransport,
	}
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, fmt.Errorf("not an integer: %q", n)
		}
		return i, nil
	}
	return 0, fmt.Errorf("unexpected type %T", v)
}

func asString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	return "", fmt.Errorf("unexpected type %T", v)
}

func asBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected type %T", v)
}
