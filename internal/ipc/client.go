package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/persistwin/persistwin/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	pathErr    error
	timeout    time.Duration
}

// NewClient creates a new IPC client. The constructor never fails; a socket
// path resolution error is held and surfaced by the first command.
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()

	return &Client{
		socketPath: socketPath,
		pathErr:    err,
		timeout:    15 * time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	if c.pathErr != nil {
		return nil, fmt.Errorf("failed to resolve daemon socket path: %w", c.pathErr)
	}

	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
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

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	req := &Request{
		Command: CommandReload,
	}

	_, err := c.sendRequest(req)
	return err
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	req := &Request{
		Command: CommandGetStatus,
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}

	return &status, nil
}

// GetTopology retrieves the live monitor topology
func (c *Client) GetTopology() (*TopologyData, error) {
	req := &Request{
		Command: CommandGetTopology,
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return nil, err
	}

	var data TopologyData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse topology data: %w", err)
	}

	return &data, nil
}

// SnapshotNow asks the daemon to commit the current layout immediately
func (c *Client) SnapshotNow() error {
	req := &Request{
		Command: CommandSnapshotNow,
	}

	_, err := c.sendRequest(req)
	return err
}

// RestoreNow asks the daemon to restore the stored layout for the current
// topology immediately
func (c *Client) RestoreNow() error {
	req := &Request{
		Command: CommandRestoreNow,
	}

	_, err := c.sendRequest(req)
	return err
}

// ListLayouts retrieves stored layout summaries
func (c *Client) ListLayouts() (*LayoutsData, error) {
	req := &Request{
		Command: CommandListLayouts,
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return nil, err
	}

	var data LayoutsData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse layouts data: %w", err)
	}

	return &data, nil
}

// PruneLayout deletes the stored layout for a fingerprint
func (c *Client) PruneLayout(fingerprint string) (bool, error) {
	payload, err := json.Marshal(PruneLayoutPayload{Fingerprint: fingerprint})
	if err != nil {
		return false, fmt.Errorf("failed to marshal prune payload: %w", err)
	}

	req := &Request{
		Command: CommandPruneLayout,
		Payload: payload,
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return false, err
	}

	var data PruneLayoutData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return false, fmt.Errorf("failed to parse prune data: %w", err)
	}

	return data.Pruned, nil
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
