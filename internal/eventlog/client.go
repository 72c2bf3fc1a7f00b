package eventlog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/zstd"

	"launchpad/internal/logging"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 90 * time.Second
	writeWait    = 10 * time.Second
	readLimit    = 8 << 20 // 8 MiB ceiling for batched event frames.
)

// ErrSubscriptionClosed is returned (via Subscription.Err) when a
// subscription ends because the underlying connection closed, as opposed to
// being cancelled by the caller.
var ErrSubscriptionClosed = errors.New("eventlog: subscription closed")

// Client is the facade over the external event-log service's three
// operations. A Client is safe to clone (copy by value) so each twin
// executor can hold its own independent subscription; it carries no mutable
// state of its own.
type Client struct {
	baseURL string
	http    *http.Client
	dial    *websocket.Dialer
	log     *logging.Logger
}

// New constructs a Client against baseURL (e.g. "http://localhost:4454").
func New(baseURL string, log *logging.Logger) *Client {
	if log == nil {
		log = logging.L()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		dial:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:     log,
	}
}

func (c *Client) wsURL(path string) string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + path
}

// handshake is the first frame sent on a subscribe_monotonic connection.
type handshake struct {
	SessionID string    `json:"sessionId"`
	StartFrom OffsetMap `json:"startFrom"`
	Query     string    `json:"query"`
}

// wireFrame is the envelope every subscribe_monotonic / query frame is
// decoded from.
type wireFrame struct {
	Type     string    `json:"type"`
	Event    *Event    `json:"event,omitempty"`
	CaughtUp bool      `json:"caughtUp,omitempty"`
	Offsets  OffsetMap `json:"offsets,omitempty"`
	NewStart OffsetMap `json:"newStart,omitempty"`
}

// Subscription is a live subscribe_monotonic stream. Responses delivers
// decoded SubscribeResponse values until the connection closes or Close is
// called; Err reports the terminal reason once Responses has drained.
type Subscription struct {
	responses chan SubscribeResponse
	cancel    context.CancelFunc
	conn      *websocket.Conn

	mu  sync.Mutex
	err error
}

func (s *Subscription) Responses() <-chan SubscribeResponse { return s.responses }

func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Close cancels the subscription and releases its connection. Safe to call
// more than once.
func (s *Subscription) Close() {
	s.cancel()
	if s.conn != nil {
		_ = s.conn.Close()
	}
}

// SubscribeMonotonic opens a long-lived subscription against query, starting
// from startFrom. sessionID must be stable per twin identity ("name:id") so
// the log can correlate time-travel notifications to this consumer.
func (c *Client) SubscribeMonotonic(ctx context.Context, sessionID string, startFrom OffsetMap, query string) (*Subscription, error) {
	conn, _, err := c.dial.DialContext(ctx, c.wsURL("/subscribe_monotonic"), nil)
	if err != nil {
		return nil, fmt.Errorf("eventlog: dial subscribe_monotonic: %w", err)
	}
	conn.SetReadLimit(readLimit)

	if err := conn.WriteJSON(handshake{SessionID: sessionID, StartFrom: startFrom, Query: query}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("eventlog: send handshake: %w", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		responses: make(chan SubscribeResponse),
		cancel:    cancel,
		conn:      conn,
	}

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go c.pingLoop(subCtx, conn)
	go c.subscribeReadLoop(subCtx, sub, conn)

	return sub, nil
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) subscribeReadLoop(ctx context.Context, sub *Subscription, conn *websocket.Conn) {
	defer close(sub.responses)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("eventlog: unexpected subscription close", logging.Error(err))
			}
			sub.setErr(fmt.Errorf("%w: %v", ErrSubscriptionClosed, err))
			return
		}

		payload, err := decodeFrame(conn, messageType, data)
		if err != nil {
			c.log.Warn("eventlog: decode frame", logging.Error(err))
			continue
		}

		var frame wireFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			c.log.Warn("eventlog: malformed frame, skipping", logging.Error(err))
			continue
		}

		resp, ok := toSubscribeResponse(frame)
		if !ok {
			c.log.Debug("eventlog: unknown subscribe frame variant", logging.String("type", frame.Type))
			continue
		}

		select {
		case sub.responses <- resp:
		case <-ctx.Done():
			return
		}
	}
}

func toSubscribeResponse(frame wireFrame) (SubscribeResponse, bool) {
	switch frame.Type {
	case "event":
		if frame.Event == nil {
			return SubscribeResponse{}, false
		}
		return SubscribeResponse{Kind: SubscribeEvent, Event: *frame.Event, CaughtUp: frame.CaughtUp}, true
	case "offsets":
		return SubscribeResponse{Kind: SubscribeOffsets, Offsets: frame.Offsets}, true
	case "timeTravel":
		return SubscribeResponse{Kind: SubscribeTimeTravel, NewStart: frame.NewStart}, true
	default:
		return SubscribeResponse{}, false
	}
}

// decodeFrame transparently zstd-decompresses binary frames; text frames are
// assumed to already be plain JSON.
func decodeFrame(conn *websocket.Conn, messageType int, data []byte) ([]byte, error) {
	if messageType != websocket.BinaryMessage {
		return data, nil
	}
	decoder, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("eventlog: zstd reader: %w", err)
	}
	defer decoder.Close()
	return io.ReadAll(decoder)
}

// Query performs a finite replay of events matching query between lower and
// upper (inclusive bounds), in the given order.
func (c *Client) Query(ctx context.Context, query string, order Order, lower, upper Bound) ([]QueryResponse, error) {
	values := url.Values{}
	values.Set("q", query)
	if order == OrderDescending {
		values.Set("order", "desc")
	} else {
		values.Set("order", "asc")
	}
	if lower.Set {
		values.Set("lower", strconv.FormatUint(lower.Lamport, 10))
	}
	if upper.Set {
		values.Set("upper", strconv.FormatUint(upper.Lamport, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("eventlog: build query request: %w", err)
	}
	req.Header.Set("Accept-Encoding", "zstd")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eventlog: query transport: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("eventlog: query body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eventlog: query returned status %d: %s", resp.StatusCode, string(body))
	}

	var frames []wireFrame
	if err := json.Unmarshal(body, &frames); err != nil {
		return nil, fmt.Errorf("eventlog: decode query response: %w", err)
	}

	results := make([]QueryResponse, 0, len(frames))
	for _, frame := range frames {
		if frame.Type != "event" || frame.Event == nil {
			continue
		}
		results = append(results, QueryResponse{Kind: QueryEvent, Event: *frame.Event})
	}
	return results, nil
}

// Publish submits one or more tagged events to the log. The request body is
// snappy-compressed before POSTing; the log service decompresses per the
// Content-Encoding header.
func (c *Client) Publish(ctx context.Context, request PublishRequest) (PublishResponse, error) {
	raw, err := json.Marshal(request)
	if err != nil {
		return PublishResponse{}, fmt.Errorf("eventlog: marshal publish request: %w", err)
	}

	var compressed bytes.Buffer
	writer := snappy.NewBufferedWriter(&compressed)
	if _, err := writer.Write(raw); err != nil {
		return PublishResponse{}, fmt.Errorf("eventlog: compress publish request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return PublishResponse{}, fmt.Errorf("eventlog: flush publish request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/publish", &compressed)
	if err != nil {
		return PublishResponse{}, fmt.Errorf("eventlog: build publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "snappy")
	req.Header.Set("Accept-Encoding", "snappy")

	resp, err := c.http.Do(req)
	if err != nil {
		return PublishResponse{}, fmt.Errorf("eventlog: publish transport: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return PublishResponse{}, fmt.Errorf("eventlog: publish body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return PublishResponse{}, fmt.Errorf("eventlog: publish returned status %d: %s", resp.StatusCode, string(body))
	}

	var out PublishResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return PublishResponse{}, fmt.Errorf("eventlog: decode publish response: %w", err)
	}
	return out, nil
}

// readBody drains resp.Body, transparently decompressing it according to
// Content-Encoding (zstd or snappy).
func readBody(resp *http.Response) ([]byte, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "zstd":
		decoder, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer decoder.Close()
		return io.ReadAll(decoder)
	case "snappy":
		return io.ReadAll(snappy.NewReader(resp.Body))
	default:
		return io.ReadAll(resp.Body)
	}
}
