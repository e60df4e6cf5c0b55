package zilliqa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"io/ioutil"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	jsonrpcVersion = "2.0"
)

// stateChanging methods are sent once. A failure may still have been applied,
// the caller reads the state back before trying again.
var stateChanging = map[string]bool{
	"CallTransition": true,
}

type noRetryKey struct{}

// A rpcClient represents a JSON RPC client (over HTTP(s)).
type rpcClient struct {
	url        string
	httpClient *retryablehttp.Client
	debug      bool
	nextId     int64
}

// rpcRequest represent a RCP request
type rpcRequest struct {
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	Id      int64       `json:"id"`
	JsonRpc string      `json:"jsonrpc"`
}

// RPCErrorCode represents an error code to be used as a part of an RPCError
// which is in turn used in a JSON-RPC Response object.
type RPCErrorCode int

// RPCError represents an error that is used as a part of a JSON-RPC Response
// object.
type RPCError struct {
	Code    RPCErrorCode `json:"code,omitempty"`
	Message string       `json:"message,omitempty"`
}

var _, _ error = RPCError{}, (*RPCError)(nil)

func (e RPCError) Error() string {
	return fmt.Sprintf("%d:%s", e.Code, e.Message)
}

type rpcResponse struct {
	Id     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (rResp rpcResponse) ResultAsString() (string, error) {
	var s string
	err := json.Unmarshal(rResp.Result, &s)
	return s, err
}

func (rResp rpcResponse) ResultInto(v interface{}) error {
	return json.Unmarshal(rResp.Result, v)
}

type ClientOption func(c *rpcClient)

// WithRetries tunes the http level retries done before a read is reported
// as a transient failure.
func WithRetries(max int, waitMin, waitMax time.Duration) ClientOption {
	return func(c *rpcClient) {
		c.httpClient.RetryMax = max
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

func NewClient(url string, timeout int, debug bool, opts ...ClientOption) (*rpcClient, error) {
	if len(url) == 0 {
		return nil, errors.New("bad call missing argument host")
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil
	retryClient.RetryMax = 3
	retryClient.CheckRetry = checkRetry
	retryClient.HTTPClient.Timeout = time.Duration(timeout) * time.Second

	c := &rpcClient{
		url:        url,
		httpClient: retryClient,
		debug:      debug,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// call prepares and executes the request. Anything that stops the node from
// answering, including 5xx responses, is returned as an entity.TransientError
// since the call may or may not have been applied.
func (c *rpcClient) call(method string, params interface{}) (*rpcResponse, error) {
	rpcR := rpcRequest{method, params, atomic.AddInt64(&c.nextId, 1), jsonrpcVersion}
	payloadBuffer := &bytes.Buffer{}
	if err := json.NewEncoder(payloadBuffer).Encode(rpcR); err != nil {
		return nil, err
	}

	zap.L().With(zap.String("request", rpcR.Method), zap.String("params", fmt.Sprintf("%v", params))).Debug("Zilliqa: RPC Request")
	if c.debug {
		zap.L().With(zap.String("request", payloadBuffer.String())).Debug("Zilliqa: RPC Request")
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, c.url, payloadBuffer.Bytes())
	if err != nil {
		return nil, err
	}

	if stateChanging[method] {
		req = req.WithContext(context.WithValue(context.Background(), noRetryKey{}, true))
	}

	req.Header.Add("Content-Type", "application/json;charset=utf-8")
	req.Header.Add("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		zap.L().With(zap.Error(err), zap.String("request", method)).Warn("Zilliqa: RPC Failure")
		return nil, entity.NewTransientError(method, err)
	}
	defer resp.Body.Close()

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, entity.NewTransientError(method, err)
	}

	if c.debug {
		zap.L().With(zap.String("response", string(data))).Debug("Zilliqa: RPC Response")
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		zap.L().With(zap.Int("status", resp.StatusCode), zap.String("request", method)).Warn("Zilliqa: RPC Failure")
		return nil, entity.NewTransientError(method, fmt.Errorf("http status %d", resp.StatusCode))
	}

	var rr *rpcResponse
	if err := json.Unmarshal(data, &rr); err != nil {
		return nil, fmt.Errorf("%s: malformed rpc response: %w", method, err)
	}
	if rr == nil {
		return nil, entity.NewTransientError(method, errors.New("rpc response is nil, please check your network status"))
	}

	return rr, nil
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Value(noRetryKey{}) != nil {
		return false, ctx.Err()
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}
