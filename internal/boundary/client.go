// Package boundary is a read-only client for the open administrative-boundary
// API serving the province/district/ward hierarchy. The data set changes
// rarely, so responses are cached in memory for the life of the process.
package boundary

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/vhoangnguyen/checkoutflow/internal/domain"
)

type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	mu        sync.Mutex
	provinces []domain.Province
	districts map[int][]domain.District
	wards     map[int][]domain.Ward
}

func NewClient(baseURL string, client *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		client:    client,
		logger:    logger,
		districts: make(map[int][]domain.District),
		wards:     make(map[int][]domain.Ward),
	}
}

func (c *Client) Provinces(ctx context.Context) ([]domain.Province, error) {
	c.mu.Lock()
	cached := c.provinces
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	var provinces []domain.Province
	if err := c.get(ctx, "/p/", &provinces); err != nil {
		return nil, fmt.Errorf("fetch provinces: %w", err)
	}

	c.mu.Lock()
	c.provinces = provinces
	c.mu.Unlock()
	return provinces, nil
}

func (c *Client) Districts(ctx context.Context, provinceCode int) ([]domain.District, error) {
	c.mu.Lock()
	cached, ok := c.districts[provinceCode]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	var province struct {
		Code      int               `json:"code"`
		Name      string            `json:"name"`
		Districts []domain.District `json:"districts"`
	}
	path := "/p/" + strconv.Itoa(provinceCode) + "?depth=2"
	if err := c.get(ctx, path, &province); err != nil {
		return nil, fmt.Errorf("fetch districts of province %d: %w", provinceCode, err)
	}

	c.mu.Lock()
	c.districts[provinceCode] = province.Districts
	c.mu.Unlock()
	return province.Districts, nil
}

func (c *Client) Wards(ctx context.Context, districtCode int) ([]domain.Ward, error) {
	c.mu.Lock()
	cached, ok := c.wards[districtCode]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	var district struct {
		Code  int           `json:"code"`
		Name  string        `json:"name"`
		Wards []domain.Ward `json:"wards"`
	}
	path := "/d/" + strconv.Itoa(districtCode) + "?depth=2"
	if err := c.get(ctx, path, &district); err != nil {
		return nil, fmt.Errorf("fetch wards of district %d: %w", districtCode, err)
	}

	c.mu.Lock()
	c.wards[districtCode] = district.Wards
	c.mu.Unlock()
	return district.Wards, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("boundary request failed", "path", path, "error", err)
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("boundary API returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
