package progress

import (
	"errors"
	"log/slog"
)

// ErrProxyClosed is returned by proxies whose receiving side has gone away.
// Delivery is best-effort: emitters log the failure and carry on.
var ErrProxyClosed = errors.New("progress: proxy closed")

// Proxy is the send-only channel a build task reports through. Sends are
// one-way, ordered per sender, and thread-safe. Implementations must never
// block indefinitely: the build task calls Send while holding no locks and
// expects it to return promptly.
type Proxy interface {
	Send(Message) error
}

// ProxyFunc adapts a function to the Proxy interface.
type ProxyFunc func(Message) error

// Send calls f(m).
func (f ProxyFunc) Send(m Message) error { return f(m) }

// StreamProxy delivers messages into a Stream.
type StreamProxy struct {
	stream *Stream
}

// NewStreamProxy returns a proxy that pushes every message onto stream.
func NewStreamProxy(stream *Stream) *StreamProxy {
	return &StreamProxy{stream: stream}
}

// Send pushes m onto the underlying stream. It never fails: the stream is
// unbounded and outlives every sender.
func (p *StreamProxy) Send(m Message) error {
	p.stream.Push(m)
	return nil
}

// IconProxy narrows a bundle-message proxy to the icon sub-task, wrapping
// each IconMessage into an IconTask envelope. This is the one-way conversion
// from the icon message union into the bundle message union.
type IconProxy struct {
	parent Proxy
}

// NewIconProxy returns a proxy forwarding icon messages into parent.
func NewIconProxy(parent Proxy) *IconProxy {
	return &IconProxy{parent: parent}
}

// Send wraps m and forwards it. A nil parent drops the message silently;
// icon production without an observer is legitimate.
func (p *IconProxy) Send(m IconMessage) error {
	if p == nil || p.parent == nil {
		return nil
	}
	return p.parent.Send(IconTask{Msg: m})
}

// Emit sends m through proxy and logs delivery failures. Send errors never
// affect the caller: a build completes whether or not anyone is listening.
func Emit(proxy Proxy, m Message) {
	if proxy == nil {
		return
	}
	if err := proxy.Send(m); err != nil {
		slog.Warn("[PROGRESS] message dropped", "kind", m.Kind(), "error", err)
	}
}
