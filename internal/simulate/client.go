package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a thin HTTP client for the bandrush API. Every call carries
// the acting player in the X-Caller header.
type Client struct {
	base   string
	client *http.Client
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		base:   baseURL,
		client: &http.Client{Timeout: timeout},
	}
}

// GameView mirrors the API's game payload.
type GameView struct {
	ID             uint64 `json:"id"`
	Owner          string `json:"owner"`
	State          string `json:"state"`
	Bands          int    `json:"bands"`
	Multiplier     int64  `json:"multiplier"`
	PotentialScore int64  `json:"potential_score"`
	FinalScore     int64  `json:"final_score"`
	Season         uint64 `json:"season"`
}

// EntryView mirrors the API's leaderboard row payload.
type EntryView struct {
	Rank   int    `json:"rank"`
	Player string `json:"player"`
	Score  int64  `json:"score"`
	GameID uint64 `json:"game_id"`
}

// CostView mirrors the API's cost quote payload.
type CostView struct {
	EntryFee      int64 `json:"entry_fee"`
	RandomnessFee int64 `json:"randomness_fee"`
	Total         int64 `json:"total"`
}

func (c *Client) do(ctx context.Context, method, path, caller string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set("X-Caller", caller)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if out != nil && resp.StatusCode < http.StatusBadRequest {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodGet, "/healthz", "", nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("healthz returned %d", status)
	}
	return nil
}

// Cost fetches the start-game quote.
func (c *Client) Cost(ctx context.Context) (CostView, error) {
	var out CostView
	status, err := c.do(ctx, http.MethodGet, "/cost", "", nil, &out)
	if err != nil {
		return CostView{}, err
	}
	if status != http.StatusOK {
		return CostView{}, fmt.Errorf("cost returned %d", status)
	}
	return out, nil
}

// StartGame starts a game paid by player.
func (c *Client) StartGame(ctx context.Context, player string, payment int64) (GameView, error) {
	var out GameView
	status, err := c.do(ctx, http.MethodPost, "/games", player,
		map[string]int64{"payment": payment}, &out)
	if err != nil {
		return GameView{}, err
	}
	if status != http.StatusCreated {
		return GameView{}, fmt.Errorf("start game returned %d", status)
	}
	return out, nil
}

// Game fetches a game snapshot.
func (c *Client) Game(ctx context.Context, id uint64) (GameView, error) {
	var out GameView
	status, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/games/%d", id), "", nil, &out)
	if err != nil {
		return GameView{}, err
	}
	if status != http.StatusOK {
		return GameView{}, fmt.Errorf("get game returned %d", status)
	}
	return out, nil
}

// AddBand pushes one band; the bool reports whether the game survived.
func (c *Client) AddBand(ctx context.Context, player string, id uint64) (GameView, error) {
	var out GameView
	status, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/games/%d/bands", id), player, struct{}{}, &out)
	if err != nil {
		return GameView{}, err
	}
	if status != http.StatusOK {
		return GameView{}, fmt.Errorf("add band returned %d", status)
	}
	return out, nil
}

// CashOut settles the game at its current score.
func (c *Client) CashOut(ctx context.Context, player string, id uint64) (GameView, error) {
	var out GameView
	status, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/games/%d/cashout", id), player, struct{}{}, &out)
	if err != nil {
		return GameView{}, err
	}
	if status != http.StatusOK {
		return GameView{}, fmt.Errorf("cash out returned %d", status)
	}
	return out, nil
}

// Leaderboard fetches the current season's board.
func (c *Client) Leaderboard(ctx context.Context) ([]EntryView, error) {
	var out []EntryView
	status, err := c.do(ctx, http.MethodGet, "/leaderboard", "", nil, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("leaderboard returned %d", status)
	}
	return out, nil
}
