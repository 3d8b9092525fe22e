// Package assist implements the playbook ask/act capability against an
// external language-understanding service. The service receives the current
// page markup together with the question or instruction and replies with
// plain text (ask) or a single concrete page action (act).
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"treasuryflow/playbook"
)

// ErrAssist wraps every transport or protocol failure of the service.
var ErrAssist = errors.New("assist: request failed")

// Client talks to the assist service over HTTP.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates an assist client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
}

type askRequest struct {
	Question string `json:"question"`
	HTML     string `json:"html"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

type actRequest struct {
	Instruction string `json:"instruction"`
	HTML        string `json:"html"`
}

// actResponse is the single concrete action the service resolved the
// instruction to.
type actResponse struct {
	Action   string `json:"action"` // "click" or "fill"
	Selector string `json:"selector"`
	Value    string `json:"value,omitempty"`
}

// Ask poses a natural-language question about the current page and returns
// the service's answer.
func (c *Client) Ask(ctx context.Context, page playbook.Page, question string) (string, error) {
	html, err := page.Content(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: page content: %v", ErrAssist, err)
	}

	var resp askResponse
	if err := c.post(ctx, "/ask", askRequest{Question: question, HTML: html}, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}

// Act resolves a natural-language instruction to one page action and
// applies it.
func (c *Client) Act(ctx context.Context, page playbook.Page, instruction string) error {
	html, err := page.Content(ctx)
	if err != nil {
		return fmt.Errorf("%w: page content: %v", ErrAssist, err)
	}

	var resp actResponse
	if err := c.post(ctx, "/act", actRequest{Instruction: instruction, HTML: html}, &resp); err != nil {
		return err
	}

	switch resp.Action {
	case "click":
		return page.Click(ctx, resp.Selector)
	case "fill":
		return page.Fill(ctx, resp.Selector, resp.Value)
	default:
		return fmt.Errorf("%w: unknown action %q", ErrAssist, resp.Action)
	}
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrAssist, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssist, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssist, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrAssist, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrAssist, err)
	}
	return nil
}
