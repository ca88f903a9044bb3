package socket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	specerr "github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/errors"
)

// Client connects to the specflow-lsp daemon over a Unix socket.
type Client struct {
	sockPath string
}

// NewClient creates a client that will connect to the given socket path.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath}
}

// Open sends a document's full text as opened in the editor and returns the
// diagnostics of its parse.
func (c *Client) Open(path, text string) (*DiagnosticsResult, error) {
	var result DiagnosticsResult
	if err := c.invoke(MethodOpen, DocumentParams{Path: path, Text: text}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Change sends the new full text of an open document.
func (c *Client) Change(path, text string) (*DiagnosticsResult, error) {
	var result DiagnosticsResult
	if err := c.invoke(MethodChange, DocumentParams{Path: path, Text: text}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Close tells the daemon the editor closed a document.
func (c *Client) Close(path string) error {
	_, err := c.call(Request{ID: "1", Method: MethodClose, Params: DocumentParams{Path: path}})
	return err
}

// Complete requests completion items at a 0-based position.
func (c *Client) Complete(path string, line, character int) (*CompletionResult, error) {
	var result CompletionResult
	if err := c.invoke(MethodComplete, PositionParams{Path: path, Line: line, Character: character}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Definition requests the bindings implementing the step at a position.
func (c *Client) Definition(path string, line, character int) (*LocationsResult, error) {
	var result LocationsResult
	if err := c.invoke(MethodDefinition, PositionParams{Path: path, Line: line, Character: character}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// References requests the bindings implementing a step, or for a binding
// file position the steps the binding implements.
func (c *Client) References(path string, line, character int) (*LocationsResult, error) {
	var result LocationsResult
	if err := c.invoke(MethodReferences, PositionParams{Path: path, Line: line, Character: character}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Steps lists step occurrences, optionally only the unbound ones.
func (c *Client) Steps(unbound bool) (*StepsResult, error) {
	var result StepsResult
	if err := c.invoke(MethodSteps, StepsParams{Unbound: unbound}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Bindings lists the step binding declarations.
func (c *Client) Bindings() (*BindingsResult, error) {
	var result BindingsResult
	if err := c.invoke(MethodBindings, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health sends a health check request.
func (c *Client) Health() (*HealthResult, error) {
	var result HealthResult
	if err := c.invoke(MethodHealth, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reindex rescans the workspace with an extended timeout.
func (c *Client) Reindex() (*ReindexResult, error) {
	resp, err := c.callWithTimeout(Request{
		ID:     "1",
		Method: MethodReindex,
	}, 120*time.Second)
	if err != nil {
		return nil, err
	}
	var result ReindexResult
	if err := decodeResult(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Shutdown sends a shutdown request to the daemon.
func (c *Client) Shutdown() error {
	_, err := c.call(Request{
		ID:     "1",
		Method: MethodShutdown,
	})
	return err
}

// Ping checks if the daemon is reachable.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (c *Client) invoke(method string, params interface{}, out interface{}) error {
	resp, err := c.call(Request{ID: "1", Method: method, Params: params})
	if err != nil {
		return err
	}
	return decodeResult(resp, out)
}

// decodeResult re-marshals the generic result into the typed struct.
func decodeResult(resp *Response, out interface{}) error {
	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := json.Unmarshal(resultJSON, out); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

func (c *Client) call(req Request) (*Response, error) {
	return c.callWithTimeout(req, 5*time.Second)
}

func (c *Client) callWithTimeout(req Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.sockPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	// Set deadline for the whole request/response
	conn.SetDeadline(time.Now().Add(timeout))

	// Send request
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	// Read response
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4*1024*1024), 4*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		return nil, fmt.Errorf("empty response")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != "" {
		if resp.Code != "" {
			msg := strings.TrimPrefix(resp.Error, "["+resp.Code+"] ")
			return nil, specerr.New(specerr.Code(resp.Code), msg)
		}
		return nil, fmt.Errorf("server error: %s", resp.Error)
	}
	return &resp, nil
}
