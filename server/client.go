package server

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// Client calls a remote RunService.
type Client struct {
	run         *connect.Client[RunRequest, RunResponse]
	disassemble *connect.Client[DisassembleRequest, DisassembleResponse]
	history     *connect.Client[HistoryRequest, HistoryResponse]
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:8765". A nil httpClient uses http.DefaultClient.
func NewClient(httpClient connect.HTTPClient, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(baseURL, "/")
	codec := connect.WithCodec(jsonCodec{})
	return &Client{
		run:         connect.NewClient[RunRequest, RunResponse](httpClient, baseURL+RunProcedure, codec),
		disassemble: connect.NewClient[DisassembleRequest, DisassembleResponse](httpClient, baseURL+DisassembleProcedure, codec),
		history:     connect.NewClient[HistoryRequest, HistoryResponse](httpClient, baseURL+HistoryProcedure, codec),
	}
}

// Run runs a program remotely.
func (c *Client) Run(ctx context.Context, req *RunRequest) (*RunResponse, error) {
	resp, err := c.run.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Disassemble fetches a remote listing.
func (c *Client) Disassemble(ctx context.Context, req *DisassembleRequest) (*DisassembleResponse, error) {
	resp, err := c.disassemble.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// History fetches the recorded runs of a stored program.
func (c *Client) History(ctx context.Context, hash string) (*HistoryResponse, error) {
	resp, err := c.history.CallUnary(ctx, connect.NewRequest(&HistoryRequest{Hash: hash}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
