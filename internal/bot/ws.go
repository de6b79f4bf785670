// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/gorilla/websocket"
)

// wsFrame is one JSON frame on the bot websocket.
type wsFrame struct {
	Op      string   `json:"op"`
	Token   string   `json:"token,omitempty"`
	Text    string   `json:"text,omitempty"`
	Handle  string   `json:"handle,omitempty"`
	Error   string   `json:"error,omitempty"`
	Message *Message `json:"message,omitempty"`
}

// Frame operations.
const (
	opAuth    = "auth"
	opPing    = "ping"
	opSend    = "send"
	opInvoke  = "invoke"
	opOK      = "ok"
	opError   = "error"
	opMessage = "message"
)

// errCodeAuthExpired is the wire-level error code for a rejected token.
const errCodeAuthExpired = "auth_expired"

// wsConn bundles one live connection with its read-loop channels. The
// err field is written once by the read loop before done is closed;
// readers must observe done first.
type wsConn struct {
	conn     *websocket.Conn
	messages chan Message
	resps    chan wsFrame
	done     chan struct{}
	err      error
}

// WSTransport is a Transport over a JSON websocket. A background read
// loop demultiplexes asynchronous bot messages from direct responses.
type WSTransport struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
	dialer     *websocket.Dialer

	mu    sync.Mutex // guards cs lifecycle, token, and writes
	cs    *wsConn
	token string
}

// NewWSTransport builds a websocket transport for the bot endpoint.
// netDial, when non-nil, routes the socket (through a selected proxy);
// httpClient is used for asset downloads and should route the same way.
func NewWSTransport(endpoint, token, userAgent string, netDial func(ctx context.Context, network, addr string) (net.Conn, error), httpClient *http.Client) *WSTransport {
	d := &websocket.Dialer{}
	if netDial != nil {
		d.NetDialContext = netDial
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &WSTransport{
		endpoint:   endpoint,
		userAgent:  userAgent,
		httpClient: httpClient,
		dialer:     d,
		token:      token,
	}
}

// SetToken installs a fresh session token and drops the current
// connection so the next operation re-authenticates.
func (t *WSTransport) SetToken(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = token
	t.closeLocked()
}

// ensure dials and authenticates on first use, returning the live
// connection state.
func (t *WSTransport) ensure(ctx context.Context) (*wsConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cs != nil {
		return t.cs, nil
	}

	header := http.Header{}
	header.Set("User-Agent", t.userAgent)
	conn, _, err := t.dialer.DialContext(ctx, t.endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("dialing bot endpoint: %w", err)
	}

	cs := &wsConn{
		conn:     conn,
		messages: make(chan Message, 64),
		resps:    make(chan wsFrame, 1),
		done:     make(chan struct{}),
	}
	go readLoop(cs)

	resp, err := roundTrip(ctx, cs, wsFrame{Op: opAuth, Token: t.token})
	if err != nil {
		conn.Close()
		return nil, err
	}
	if resp.Op == opError {
		conn.Close()
		if resp.Error == errCodeAuthExpired {
			return nil, ErrAuthExpired
		}
		return nil, fmt.Errorf("bot auth failed: %s", resp.Error)
	}

	t.cs = cs
	return cs, nil
}

// readLoop owns all reads on the connection until it fails or closes.
func readLoop(cs *wsConn) {
	for {
		var f wsFrame
		if err := cs.conn.ReadJSON(&f); err != nil {
			cs.err = err
			close(cs.done)
			return
		}
		if f.Op == opMessage && f.Message != nil {
			select {
			case cs.messages <- *f.Message:
			default:
				// Inbox full: drop the oldest to keep draining.
				select {
				case <-cs.messages:
				default:
				}
				cs.messages <- *f.Message
			}
			continue
		}
		select {
		case cs.resps <- f:
		default:
			// Unsolicited response frame with no waiter; drop it.
		}
	}
}

// roundTrip writes a frame on cs and waits for its direct response.
func roundTrip(ctx context.Context, cs *wsConn, f wsFrame) (wsFrame, error) {
	if err := cs.conn.WriteJSON(f); err != nil {
		return wsFrame{}, fmt.Errorf("writing %s frame: %w", f.Op, err)
	}
	select {
	case resp := <-cs.resps:
		return resp, nil
	case <-cs.done:
		return wsFrame{}, fmt.Errorf("bot connection lost: %w", cs.err)
	case <-ctx.Done():
		return wsFrame{}, ctx.Err()
	}
}

// exchange runs one request/response pair on the live connection. A
// transport-level failure drops the connection so the next operation
// redials.
func (t *WSTransport) exchange(ctx context.Context, f wsFrame) (wsFrame, error) {
	cs, err := t.ensure(ctx)
	if err != nil {
		return wsFrame{}, err
	}

	t.mu.Lock()
	if t.cs != cs {
		t.mu.Unlock()
		return wsFrame{}, errors.New("bot connection closed")
	}
	resp, err := roundTrip(ctx, cs, f)
	t.mu.Unlock()

	if err != nil {
		t.mu.Lock()
		if t.cs == cs {
			t.closeLocked()
		}
		t.mu.Unlock()
		return wsFrame{}, err
	}
	return resp, nil
}

// Probe checks that the connection is up and the token still accepted.
func (t *WSTransport) Probe(ctx context.Context) error {
	resp, err := t.exchange(ctx, wsFrame{Op: opPing})
	if err != nil {
		return err
	}
	if resp.Op == opError {
		if resp.Error == errCodeAuthExpired {
			return ErrAuthExpired
		}
		return fmt.Errorf("bot probe failed: %s", resp.Error)
	}
	return nil
}

// Send delivers a query message.
func (t *WSTransport) Send(ctx context.Context, text string) error {
	resp, err := t.exchange(ctx, wsFrame{Op: opSend, Text: text})
	if err != nil {
		return err
	}
	if resp.Op == opError {
		return fmt.Errorf("bot rejected message: %s", resp.Error)
	}
	return nil
}

// Invoke presses an action button by handle.
func (t *WSTransport) Invoke(ctx context.Context, handle string) error {
	resp, err := t.exchange(ctx, wsFrame{Op: opInvoke, Handle: handle})
	if err != nil {
		return err
	}
	if resp.Op == opError {
		return fmt.Errorf("bot rejected action %q: %s", handle, resp.Error)
	}
	return nil
}

// Updates drains messages that have already arrived without blocking.
func (t *WSTransport) Updates(ctx context.Context) ([]Message, error) {
	cs, err := t.ensure(ctx)
	if err != nil {
		return nil, err
	}
	var out []Message
	for {
		select {
		case m := <-cs.messages:
			out = append(out, m)
		default:
			if len(out) == 0 {
				select {
				case <-cs.done:
					return nil, fmt.Errorf("bot connection lost: %w", cs.err)
				default:
				}
			}
			return out, nil
		}
	}
}

// Download fetches a delivered asset over HTTP to destPath using a
// temporary file, renamed only on success.
func (t *WSTransport) Download(ctx context.Context, asset AssetRef, destPath string) (int64, error) {
	if asset.URL == "" {
		return 0, fmt.Errorf("asset %s has no download location", asset.ID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("creating asset request: %w", err)
	}
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP %d fetching asset %s", resp.StatusCode, asset.ID)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".asset-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	n, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("writing asset: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("closing temp file: %w", closeErr)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("renaming temp file: %w", err)
	}
	return n, nil
}

// Close releases the connection.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeLocked()
	return nil
}

func (t *WSTransport) closeLocked() {
	if t.cs != nil {
		t.cs.conn.Close()
		t.cs = nil
	}
}
