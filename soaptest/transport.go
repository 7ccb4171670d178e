package soaptest

import (
	"context"
	"errors"
	"strings"
	"sync"

	goSoap "github.com/MrEthical07/goSoap"
	"github.com/MrEthical07/goSoap/wire"
)

// ErrUnscripted is returned for a method with neither a queued reply nor a
// handler.
var ErrUnscripted = errors.New("soaptest: unscripted method")

// Reply is one scripted answer. Headers become the raw response header text
// seen by LastResponseHeaders.
type Reply struct {
	Value   wire.Value
	Err     error
	Headers string
}

// Ok answers with v.
func Ok(v wire.Value) Reply {
	return Reply{Value: v}
}

// Fault answers with a service fault carrying message.
func Fault(message string) Reply {
	return Reply{Err: &goSoap.Fault{Kind: "Server", Message: message}}
}

// Failure answers with a transport level error.
func Failure(err error) Reply {
	return Reply{Err: err}
}

// LoginOK answers a login, setting the given "name=value" cookie tokens.
func LoginOK(tokens ...string) Reply {
	return Reply{Value: wire.NewRecord(wire.F("value", wire.Bool(true))), Headers: SetCookieHeaders(tokens...)}
}

// SetCookieHeaders renders an HTTP header block with one Set-Cookie line per
// token.
func SetCookieHeaders(tokens ...string) string {
	var b strings.Builder
	b.WriteString("HTTP/1.1 200 OK\r\nContent-Type: text/xml; charset=utf-8\r\n")
	for _, tok := range tokens {
		b.WriteString("Set-Cookie: ")
		b.WriteString(tok)
		b.WriteString("; path=/; HttpOnly\r\n")
	}
	return b.String()
}

// Handler computes a reply for one call.
type Handler func(ctx context.Context, params wire.Value) Reply

// Call records one invocation seen by the Transport.
type Call struct {
	Method string
	Params wire.Value
	// Cookies is the cookie set installed when the call was made.
	Cookies map[string]string
}

// Transport is a scripted goSoap.Transport. Queued replies are consumed
// first, then the method handler answers. It is safe for concurrent use.
type Transport struct {
	mu          sync.Mutex
	queues      map[string][]Reply
	handlers    map[string]Handler
	calls       []Call
	cookies     map[string]string
	lastHeaders string
}

var _ goSoap.Transport = (*Transport)(nil)

// New returns an empty Transport.
func New() *Transport {
	return &Transport{
		queues:   make(map[string][]Reply),
		handlers: make(map[string]Handler),
		cookies:  make(map[string]string),
	}
}

// Enqueue appends one-shot replies for method.
func (t *Transport) Enqueue(method string, replies ...Reply) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queues[method] = append(t.queues[method], replies...)
	return t
}

// Handle answers every unqueued call to method with h.
func (t *Transport) Handle(method string, h Handler) *Transport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[method] = h
	return t
}

// Call implements goSoap.Transport.
func (t *Transport) Call(ctx context.Context, method string, params wire.Value) (wire.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	t.calls = append(t.calls, Call{Method: method, Params: params, Cookies: t.cookieCopy()})
	reply, ok := t.next(method)
	h := t.handlers[method]
	t.mu.Unlock()

	if !ok {
		if h == nil {
			t.setHeaders("")
			return nil, ErrUnscripted
		}
		reply = h(ctx, params)
	}

	t.setHeaders(reply.Headers)
	if reply.Err != nil {
		return nil, reply.Err
	}
	return reply.Value, nil
}

func (t *Transport) next(method string) (Reply, bool) {
	q := t.queues[method]
	if len(q) == 0 {
		return Reply{}, false
	}
	t.queues[method] = q[1:]
	return q[0], true
}

func (t *Transport) setHeaders(h string) {
	t.mu.Lock()
	t.lastHeaders = h
	t.mu.Unlock()
}

// LastResponseHeaders implements goSoap.Transport.
func (t *Transport) LastResponseHeaders() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastHeaders
}

// SetCookie implements goSoap.Transport.
func (t *Transport) SetCookie(name, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cookies[name] = value
}

// Cookies returns the installed cookies.
func (t *Transport) Cookies() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cookieCopy()
}

func (t *Transport) cookieCopy() map[string]string {
	out := make(map[string]string, len(t.cookies))
	for k, v := range t.cookies {
		out[k] = v
	}
	return out
}

// Calls returns every recorded call in order.
func (t *Transport) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Call(nil), t.calls...)
}

// CallCount returns how many times method was invoked.
func (t *Transport) CallCount(method string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}
