package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"montage/internal/api"
)

const dialTimeout = 2 * time.Second

// Client talks to the daemon over its control socket.
type Client struct {
	conn net.Conn
	rpc  *rpc.Client
}

// Dial connects to the daemon socket at path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, rpc: rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))}, nil
}

// Close releases the connection.
func (c *Client) Close() error {
	if c.rpc != nil {
		_ = c.rpc.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func invoke[T any](c *Client, method string, req any) (*T, error) {
	resp := new(T)
	if err := c.rpc.Call(ServiceName+"."+method, req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) Stop() (*StopResponse, error) {
	return invoke[StopResponse](c, "Stop", Empty{})
}

func (c *Client) Status() (*StatusResponse, error) {
	return invoke[StatusResponse](c, "Status", Empty{})
}

// QueueList returns jobs, optionally filtered by status names.
func (c *Client) QueueList(statuses []string) (*QueueListResponse, error) {
	return invoke[QueueListResponse](c, "QueueList", QueueListRequest{Statuses: statuses})
}

func (c *Client) QueueDescribe(id int64) (*JobResponse, error) {
	return invoke[JobResponse](c, "QueueDescribe", JobRequest{ID: id})
}

// QueueSubmit enqueues files that already exist on the daemon host.
func (c *Client) QueueSubmit(req QueueSubmitRequest) (*JobResponse, error) {
	return invoke[JobResponse](c, "QueueSubmit", req)
}

func (c *Client) QueueClear(scope api.ClearScope) (*CountResponse, error) {
	return invoke[CountResponse](c, "QueueClear", QueueClearRequest{Scope: scope})
}

// QueueReset returns jobs stuck in processing to pending.
func (c *Client) QueueReset() (*CountResponse, error) {
	return invoke[CountResponse](c, "QueueReset", Empty{})
}

// QueueRetry retries failed jobs; no ids retries all of them.
func (c *Client) QueueRetry(ids []int64) (*QueueRetryResponse, error) {
	return invoke[QueueRetryResponse](c, "QueueRetry", JobIDsRequest{IDs: ids})
}

func (c *Client) QueueRemove(ids []int64) (*QueueRemoveResponse, error) {
	return invoke[QueueRemoveResponse](c, "QueueRemove", JobIDsRequest{IDs: ids})
}

func (c *Client) QueueHealth() (*QueueHealthResponse, error) {
	return invoke[QueueHealthResponse](c, "QueueHealth", Empty{})
}

func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	return invoke[DatabaseHealthResponse](c, "DatabaseHealth", Empty{})
}

// Cleanup runs a retention sweep now.
func (c *Client) Cleanup() (*CleanupResponse, error) {
	return invoke[CleanupResponse](c, "Cleanup", Empty{})
}
