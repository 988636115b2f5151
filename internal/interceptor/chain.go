// Package interceptor routes every outbound cluster request through one ordered chain of policies.
//
// A Chain is an http.RoundTripper. Interceptors registered earlier wrap those registered later:
// for interceptors [A, B, C] a request passes A, B, C before reaching the transport and the
// response or error passes C, B, A on the way back. An interceptor may pass the request through,
// rewrite a clone of it, answer with a synthesized response without calling next, or transform
// what next returns.
package interceptor

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// Interceptor observes or rewrites one outbound request. next is the remainder of the chain.
// Implementations must not keep per-request state between calls, and must not modify req;
// rewrite a req.Clone instead.
type Interceptor interface {
	Intercept(req *http.Request, next http.RoundTripper) (*http.Response, error)
}

// Func adapts a function to the Interceptor interface.
type Func func(req *http.Request, next http.RoundTripper) (*http.Response, error)

// Intercept calls f(req, next).
func (f Func) Intercept(req *http.Request, next http.RoundTripper) (*http.Response, error) {
	return f(req, next)
}

// Chain is an http.RoundTripper that applies a fixed, ordered list of interceptors.
type Chain struct {
	interceptors []Interceptor
	transport    http.RoundTripper
}

// NewChain builds a chain ending at transport. A nil transport uses http.DefaultTransport.
// The interceptor order is fixed here and never changes afterwards.
func NewChain(transport http.RoundTripper, interceptors ...Interceptor) *Chain {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Chain{
		interceptors: append([]Interceptor(nil), interceptors...),
		transport:    transport,
	}
}

// RoundTrip runs req through every interceptor and then the transport.
func (c *Chain) RoundTrip(req *http.Request) (*http.Response, error) {
	return link{chain: c}.RoundTrip(req)
}

// Len returns the number of interceptors.
func (c *Chain) Len() int {
	return len(c.interceptors)
}

// link is the "continue" capability handed to the interceptor at position pos.
type link struct {
	chain *Chain
	pos   int
}

func (l link) RoundTrip(req *http.Request) (*http.Response, error) {
	if l.pos >= len(l.chain.interceptors) {
		return l.chain.transport.RoundTrip(req)
	}
	return l.chain.interceptors[l.pos].Intercept(req, link{chain: l.chain, pos: l.pos + 1})
}

// Synthesize builds a response for req without performing a network call.
func Synthesize(req *http.Request, code int, header http.Header, body []byte) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", code, http.StatusText(code)),
		StatusCode:    code,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
