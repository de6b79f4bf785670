// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package proxyring

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"golang.org/x/net/proxy"
)

// Transport builds an HTTP transport that routes through the candidate.
// HTTP proxies use CONNECT via the standard proxy URL mechanism; SOCKS5
// proxies use a x/net dialer.
func Transport(c Candidate) (*http.Transport, error) {
	switch c.Type {
	case TypeHTTP:
		proxyURL := &url.URL{Scheme: "http", Host: c.HostPort()}
		if c.Username != "" {
			proxyURL.User = url.UserPassword(c.Username, c.Password)
		}
		return &http.Transport{Proxy: http.ProxyURL(proxyURL)}, nil

	case TypeSOCKS5:
		var auth *proxy.Auth
		if c.Username != "" {
			auth = &proxy.Auth{User: c.Username, Password: c.Password}
		}
		dialer, err := proxy.SOCKS5("tcp", c.HostPort(), auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("building SOCKS5 dialer for %s: %w", c, err)
		}
		t := &http.Transport{}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			t.DialContext = cd.DialContext
		} else {
			t.Dial = func(network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
		return t, nil

	default:
		return nil, fmt.Errorf("unsupported proxy type %q", c.Type)
	}
}

// DialFunc dials one address through a proxy.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// ContextDial builds a raw dialer through the candidate, for protocols
// that need a net.Conn rather than an http.Transport (the bot
// websocket). SOCKS5 candidates tunnel through the x/net dialer; HTTP
// candidates open a CONNECT tunnel.
func ContextDial(c Candidate) (DialFunc, error) {
	switch c.Type {
	case TypeHTTP:
		return func(ctx context.Context, network, addr string) (net.Conn, error) {
			return connectTunnel(ctx, c, addr)
		}, nil

	case TypeSOCKS5:
		var auth *proxy.Auth
		if c.Username != "" {
			auth = &proxy.Auth{User: c.Username, Password: c.Password}
		}
		dialer, err := proxy.SOCKS5("tcp", c.HostPort(), auth, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("building SOCKS5 dialer for %s: %w", c, err)
		}
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			return cd.DialContext, nil
		}
		return func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}, nil

	default:
		return nil, fmt.Errorf("unsupported proxy type %q", c.Type)
	}
}

// connectTunnel opens a TCP connection to an HTTP proxy and issues a
// CONNECT for the target address.
func connectTunnel(ctx context.Context, c Candidate, addr string) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.HostPort())
	if err != nil {
		return nil, fmt.Errorf("dialing proxy %s: %w", c, err)
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: addr},
		Host:   addr,
		Header: http.Header{},
	}
	if c.Username != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
		req.Header.Set("Proxy-Authorization", "Basic "+cred)
	}
	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("writing CONNECT to %s: %w", c, err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading CONNECT response from %s: %w", c, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		conn.Close()
		return nil, fmt.Errorf("proxy %s refused CONNECT to %s: HTTP %d", c, addr, resp.StatusCode)
	}

	// The reader may have buffered bytes past the response headers;
	// keep them readable on the tunnel.
	return &bufferedConn{Conn: conn, r: br}, nil
}

type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (b *bufferedConn) Read(p []byte) (int, error) { return b.r.Read(p) }
