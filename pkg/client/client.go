package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultTimeout = 5 * time.Second

// Client talks HTTP to a daemon listening on a unix socket
type Client struct {
	socketPath string
	httpClient *http.Client
	// streamClient has no timeout, for long-lived event streams.
	streamClient *http.Client
}

// NewClient is a constructor for creating a new Client
func NewClient(socketPath string) *Client {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var d net.Dialer
			conn, err := d.DialContext(ctx, "unix", socketPath)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) || isConnRefused(err) {
					return nil, ErrDaemonNotRunning
				}
				if errors.Is(err, fs.ErrPermission) {
					return nil, ErrPermissionDenied
				}
				logrus.Errorf("failed to connect to unix socket: %v", err)
				return nil, err
			}
			return conn, err
		},
	}
	return &Client{
		socketPath:   socketPath,
		httpClient:   &http.Client{Transport: transport, Timeout: defaultTimeout},
		streamClient: &http.Client{Transport: transport},
	}
}

// A socket file left behind by a dead daemon refuses connections.
func isConnRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

// SocketPath returns the socket the client dials.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// Send is a method for sending a request to the daemon
func (c *Client) Send(method string, path string, data string) (string, error) {
	logrus.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"data":   data,
		"unix":   c.socketPath,
	}).Debug("sending request")

	url := "http://unix" + path

	var body io.Reader
	if data != "" {
		body = strings.NewReader(data)
	}

	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return "", fmt.Errorf("unknown method: %s", method)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.Errorf("failed to close response body: %v", err)
		}
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	respBody := string(b)

	logrus.WithFields(logrus.Fields{
		"code": resp.StatusCode,
		"body": respBody,
	}).Debug("got response")

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	case resp.StatusCode == http.StatusConflict:
		return "", fmt.Errorf("%w: %s", ErrConflict, respBody)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", fmt.Errorf("got %d: %s", resp.StatusCode, respBody)
	}

	return respBody, nil
}

// Get is a method for sending a GET request to the daemon
func (c *Client) Get(path string) (string, error) {
	return c.Send(http.MethodGet, path, "")
}

// Post is a method for sending a POST request to the daemon
func (c *Client) Post(path string, data string) (string, error) {
	return c.Send(http.MethodPost, path, data)
}
