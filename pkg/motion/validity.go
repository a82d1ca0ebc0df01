// Package motion is a client for the planning-scene bridge, which
// decides whether a joint configuration is collision-free. The decision
// is made entirely on the service side; this client only ships joint
// state over and returns the verdict.
package motion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bohan-zhang/sawyer/pkg/sawyer"
)

const checkStatePath = "/check_state_validity"

// StateValidityRequest is the wire form of a validity query.
type StateValidityRequest struct {
	JointNames []string  `json:"joint_names"`
	Positions  []float64 `json:"positions"`
	Group      string    `json:"group"`
}

// StateValidityResponse is the service verdict. Contacts names the
// colliding links when the state is invalid.
type StateValidityResponse struct {
	Valid    bool     `json:"valid"`
	Contacts []string `json:"contacts,omitempty"`
}

// Client queries the planning-scene bridge over HTTP.
type Client struct {
	base   string
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds a validity client for the bridge at baseURL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		base:   baseURL,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger.With("component", "motion"),
	}
}

// CheckState asks the planning scene whether the named joint positions
// form a valid configuration for the planning group.
func (c *Client) CheckState(ctx context.Context, names []sawyer.JointName, positions []float64, group string) (bool, error) {
	if len(names) != len(positions) {
		return false, fmt.Errorf("joint names and positions length mismatch: %d != %d", len(names), len(positions))
	}
	req := StateValidityRequest{
		JointNames: make([]string, len(names)),
		Positions:  positions,
		Group:      group,
	}
	for i, n := range names {
		req.JointNames[i] = string(n)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return false, fmt.Errorf("marshal validity request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+checkStatePath, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build validity request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("query validity service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("validity service returned %d: %s", resp.StatusCode, msg)
	}

	var verdict StateValidityResponse
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return false, fmt.Errorf("decode validity response: %w", err)
	}
	if !verdict.Valid {
		c.logger.Debug("state rejected", "group", group, "contacts", verdict.Contacts)
	}
	return verdict.Valid, nil
}

var _ sawyer.Validity = (*Client)(nil)
