// Package gift contains minimal helpers to fetch a room's gift catalog from
// the Douyu gift API and serve priced lookups to the dispatcher.
package gift

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// browserUA keeps the gift CDN from rejecting non-browser clients.
const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Item is one catalog entry. Price is the per-unit price in cents of the
// platform currency, exactly as the API reports it.
type Item struct {
	ID    string
	Name  string
	Price int
}

// Client fetches gift catalogs. A zero BaseURL hits the public CDN.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return "https://gift.douyucdn.cn"
}

// FetchRoomGifts lists the gifts sendable in a room. The API duplicates some
// fields under short names (n, pc); both spellings are honoured.
func (c *Client) FetchRoomGifts(ctx context.Context, rid string) ([]Item, error) {
	if rid == "" {
		return nil, fmt.Errorf("rid empty")
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+"/api/gift/v5/web/list", nil)
	q := req.URL.Query()
	q.Set("rid", rid)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("User-Agent", browserUA)
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gift list: HTTP %d", resp.StatusCode)
	}
	var body struct {
		Data struct {
			GiftList []struct {
				ID         json.Number `json:"id"`
				Name       string      `json:"name"`
				ShortName  string      `json:"n"`
				Price      int         `json:"price"`
				ShortPrice int         `json:"pc"`
			} `json:"giftList"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	out := make([]Item, 0, len(body.Data.GiftList))
	for _, g := range body.Data.GiftList {
		if g.ID.String() == "" {
			continue
		}
		name := g.Name
		if name == "" {
			name = g.ShortName
		}
		price := g.Price
		if price == 0 {
			price = g.ShortPrice
		}
		out = append(out, Item{ID: g.ID.String(), Name: name, Price: price})
	}
	return out, nil
}

// refreshInterval limits catalog fetches; the list rarely changes mid-stream.
const refreshInterval = 5 * time.Minute

// Catalog is a concurrency-safe gift lookup table backed by the API. Lookups
// never block on a fetch: an unknown id simply misses until the next refresh.
type Catalog struct {
	client *Client
	room   string

	mu          sync.RWMutex
	items       map[string]Item
	lastRefresh time.Time
}

// NewCatalog returns an empty catalog for room. client may be nil, in which
// case the public CDN is used.
func NewCatalog(client *Client, room string) *Catalog {
	if client == nil {
		client = &Client{}
	}
	return &Catalog{client: client, room: room, items: make(map[string]Item)}
}

// Seed preloads catalog entries without marking the table fresh, so offline
// lookups work before the first successful fetch. Seeded entries are replaced
// wholesale by the next refresh.
func (c *Catalog) Seed(items []Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		c.items[item.ID] = item
	}
}

// Lookup returns the catalog entry for a gift id.
func (c *Catalog) Lookup(id string) (Item, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	return item, ok
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Refresh re-fetches the room's catalog. Calls within the refresh interval of
// a successful fetch are skipped so event-driven callers cannot hammer the
// API. A failed fetch keeps the previous table.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.mu.RLock()
	fresh := time.Since(c.lastRefresh) < refreshInterval && len(c.items) > 0
	c.mu.RUnlock()
	if fresh {
		return nil
	}

	items, err := c.client.FetchRoomGifts(ctx, c.room)
	if err != nil {
		return fmt.Errorf("refresh gift catalog: %w", err)
	}
	table := make(map[string]Item, len(items))
	for _, item := range items {
		table[item.ID] = item
	}

	c.mu.Lock()
	c.items = table
	c.lastRefresh = time.Now()
	c.mu.Unlock()

	slog.Info("gift catalog refreshed", slog.String("room", c.room), slog.Int("gifts", len(table)))
	return nil
}

// ForceRefresh clears the throttle window and fetches immediately.
func (c *Catalog) ForceRefresh(ctx context.Context) error {
	c.mu.Lock()
	c.lastRefresh = time.Time{}
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// RunRefresher refreshes the catalog on the given cadence until ctx ends.
// Fetch failures are logged and retried on the next tick.
func (c *Catalog) RunRefresher(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = refreshInterval
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				slog.Warn("gift catalog refresh failed", slog.Any("err", err))
			}
		}
	}
}
