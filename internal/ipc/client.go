package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/runtimepath"
)

// ErrNotRunning wraps connection failures so callers can fall back to
// signalling the daemon.
var ErrNotRunning = errors.New("is the daemon running?")

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for the socket at socketPath.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

func (c *Client) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (%w)", err, ErrNotRunning)
	}
	return conn, nil
}

func writeRequest(conn net.Conn, req *Request) error {
	reqData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	return nil
}

func readResponse(reader *bufio.Reader) (*Response, error) {
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := writeRequest(conn, req); err != nil {
		return nil, err
	}
	return readResponse(bufio.NewReader(conn))
}

func (c *Client) send(cmd CommandType, payload interface{}) (*Response, error) {
	req, err := NewRequest(cmd, payload)
	if err != nil {
		return nil, err
	}
	return c.sendRequest(req)
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.send(CommandPing, nil)
	return err
}

// Status retrieves the daemon status and the live previews.
func (c *Client) Status() (*StatusData, error) {
	resp, err := c.send(CommandStatus, nil)
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}
	return &status, nil
}

// Reload makes the daemon re-read its configuration file.
func (c *Client) Reload() error {
	_, err := c.send(CommandReload, nil)
	return err
}

// Save makes the daemon write the current positions to disk.
func (c *Client) Save() error {
	_, err := c.send(CommandSave, nil)
	return err
}

// Cycle switches to the next (forward) or previous client and returns the
// character it activated.
func (c *Client) Cycle(direction string) (string, error) {
	return c.CycleGroup(direction, "")
}

// CycleGroup is Cycle within a named cycle group.
func (c *Client) CycleGroup(direction, group string) (string, error) {
	resp, err := c.send(CommandCycle, CyclePayload{Direction: direction, Group: group})
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", nil
	}
	var result CycleResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return "", fmt.Errorf("failed to parse cycle result: %w", err)
	}
	return result.Character, nil
}

// ApplyProfile replaces the daemon's active profile.
func (c *Client) ApplyProfile(p config.Profile) error {
	_, err := c.send(CommandApplyConfig, ApplyConfigPayload{Profile: p})
	return err
}

// MoveThumbnail moves a character's preview.
func (c *Client) MoveThumbnail(m ThumbnailMovePayload) error {
	_, err := c.send(CommandThumbnailMove, m)
	return err
}

// Subscribe streams daemon events to fn until ctx is cancelled or the
// daemon closes the stream.
func (c *Client) Subscribe(ctx context.Context, fn func(Event)) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))
	if err := writeRequest(conn, &Request{Command: CommandSubscribe}); err != nil {
		return err
	}
	reader := bufio.NewReader(conn)
	if _, err := readResponse(reader); err != nil {
		return err
	}
	conn.SetDeadline(time.Time{})

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("event stream closed: %w", err)
		}
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return fmt.Errorf("failed to parse event: %w", err)
		}
		fn(ev)
	}
}
