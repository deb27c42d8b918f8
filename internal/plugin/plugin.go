// Package plugin implements the newline-delimited JSON-RPC client the
// dynamodb natives use to talk to a separate plugin process, adapted in
// spirit from estevaofon-noxy's internal/plugin/plugin.go: the same
// lazy-start-by-name, PATH-then-local-dir executable resolution, one
// request line out and one response line in per Call.
package plugin

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Request is one JSON-RPC call. ID is a fresh uuid per call so stderr/log
// correlation can line up a request with its response even though the
// wire protocol itself is strictly request-then-response (spec.md §6's
// tracing concern, extended to the plugin boundary).
type Request struct {
	ID     string        `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

type Response struct {
	ID     string      `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Client owns one plugin subprocess's stdio pipes.
type Client struct {
	Name    string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Scanner
	running bool
	mu      sync.Mutex
}

var (
	loaded     = make(map[string]*Client)
	loadedLock sync.Mutex
)

// Load starts (or returns the already-running) plugin registered under
// name, resolving executableName the same three ways the teacher's
// LoadPlugin does: PATH, a `plugins/<name>/<executableName>` convention
// relative to root, then the current directory.
func Load(root, name, executableName string) (*Client, error) {
	loadedLock.Lock()
	defer loadedLock.Unlock()

	if c, ok := loaded[name]; ok {
		return c, nil
	}

	execPath, err := exec.LookPath(executableName)
	if err != nil {
		candidate := filepath.Join(root, "plugins", name, executableName)
		if _, statErr := os.Stat(candidate); statErr == nil {
			execPath, _ = filepath.Abs(candidate)
		} else if _, statErr := os.Stat(executableName); statErr == nil {
			execPath, _ = filepath.Abs(executableName)
		} else {
			return nil, fmt.Errorf("plugin %q: executable %q not found", name, executableName)
		}
	}

	cmd := exec.Command(execPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("plugin %q: stdin pipe: %w", name, err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("plugin %q: stdout pipe: %w", name, err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("plugin %q: start: %w", name, err)
	}

	client := &Client{
		Name:    name,
		cmd:     cmd,
		stdin:   stdin,
		stdout:  bufio.NewScanner(stdoutPipe),
		running: true,
	}
	loaded[name] = client
	return client, nil
}

// Call sends one request and blocks for its response. The plugin process
// is a strict request/response pipe, so params/result travel as raw
// interface{} (map/slice/scalar) — the caller (internal/natives) is
// responsible for flattening that down to an object.Value, since the VM's
// own value model has no map/array kind.
func (c *Client) Call(method string, params []interface{}) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, fmt.Errorf("plugin %q: not running", c.Name)
	}

	req := Request{ID: uuid.New().String(), Method: method, Params: params}
	reqBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("plugin %q: marshal request: %w", c.Name, err)
	}

	if _, err := c.stdin.Write(append(reqBytes, '\n')); err != nil {
		c.running = false
		return nil, fmt.Errorf("plugin %q: write request: %w", c.Name, err)
	}

	if !c.stdout.Scan() {
		c.running = false
		if err := c.stdout.Err(); err != nil {
			return nil, fmt.Errorf("plugin %q: read response: %w", c.Name, err)
		}
		return nil, fmt.Errorf("plugin %q: unexpected EOF", c.Name)
	}

	var resp Response
	if err := json.Unmarshal(c.stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("plugin %q: unmarshal response: %w", c.Name, err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("plugin %q: %s", c.Name, resp.Error)
	}
	return resp.Result, nil
}

// Close terminates the plugin subprocess, if still running.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.running = false
	_ = c.stdin.Close()
	return c.cmd.Wait()
}
