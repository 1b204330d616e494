package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wricardo/trapped/game/engine"
	"github.com/wricardo/trapped/game/service"
)

// Client drives one session of a running server over the REST API
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
	requests  int
}

// stateResponse is the body of undo and reset
type stateResponse struct {
	Message string            `json:"message"`
	State   *engine.GameState `json:"state"`
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SessionID returns the session the client is playing
func (c *Client) SessionID() string {
	return c.sessionID
}

// Requests returns how many API calls the client made
func (c *Client) Requests() int {
	return c.requests
}

func (c *Client) call(method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	c.requests++
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s failed: %s - %s", method, path, resp.Status, strings.TrimSpace(string(data)))
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + c.sessionID + suffix
}

// CreateSession starts a new session on levelID, the server default when empty
func (c *Client) CreateSession(levelID string) (*engine.GameState, error) {
	var info service.SessionInfo
	if err := c.call(http.MethodPost, "/api/sessions", map[string]string{"level_id": levelID}, &info); err != nil {
		return nil, err
	}
	c.sessionID = info.ID
	return info.GameState, nil
}

// Resume attaches the client to an existing session
func (c *Client) Resume(sessionID string) (*engine.GameState, error) {
	c.sessionID = sessionID
	return c.GetState()
}

func (c *Client) GetState() (*engine.GameState, error) {
	var state engine.GameState
	if err := c.call(http.MethodGet, c.sessionPath("/state"), nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) Move(direction string) (*service.MoveResult, error) {
	var result service.MoveResult
	if err := c.call(http.MethodPost, c.sessionPath("/move"), map[string]string{"direction": direction}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UndoTurn takes back the last move
func (c *Client) UndoTurn() (*engine.GameState, error) {
	var resp stateResponse
	if err := c.call(http.MethodPost, c.sessionPath("/undo"), map[string]string{"scope": "turn"}, &resp); err != nil {
		return nil, err
	}
	return resp.State, nil
}

func (c *Client) Reset() (*engine.GameState, error) {
	var resp stateResponse
	if err := c.call(http.MethodPost, c.sessionPath("/reset"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.State, nil
}
