// Package foodfacts looks up packaged products in Open Food Facts.
package foodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"nutrilog/internal/util"
	"nutrilog/pkg/domain"
)

const (
	DefaultBaseURL = "https://world.openfoodfacts.org"
	productFields  = "code,product_name,brands,nutriments"
	userAgent      = "nutrilog/1.0 (barcode lookup)"
)

var barcodePattern = regexp.MustCompile(`^\d{6,14}$`)

// Client queries the product database by exact barcode.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      Cache
}

// NewClient builds a client; cache may be nil.
func NewClient(baseURL string, cache Cache) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      cache,
	}
}

// Lookup returns ok=false when the code is unknown. Misses are cached too.
func (c *Client) Lookup(ctx context.Context, code string) (domain.FoodProduct, bool, error) {
	code = strings.TrimSpace(code)
	if !barcodePattern.MatchString(code) {
		return domain.FoodProduct{}, false, nil
	}
	if c.cache != nil {
		if entry, found := c.cache.Get(ctx, code); found {
			return entry.Product, entry.Found, nil
		}
	}
	product, found, err := c.fetch(ctx, code)
	if err != nil {
		return domain.FoodProduct{}, false, err
	}
	if c.cache != nil {
		c.cache.Set(ctx, code, Entry{Product: product, Found: found})
	}
	return product, found, nil
}

func (c *Client) fetch(ctx context.Context, code string) (domain.FoodProduct, bool, error) {
	endpoint := fmt.Sprintf("%s/api/v2/product/%s.json?fields=%s", c.baseURL, url.PathEscape(code), productFields)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.FoodProduct{}, false, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.FoodProduct{}, false, fmt.Errorf("food facts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.FoodProduct{}, false, nil
	}
	if resp.StatusCode >= 400 {
		return domain.FoodProduct{}, false, fmt.Errorf("food facts api error: %s", resp.Status)
	}
	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.FoodProduct{}, false, fmt.Errorf("food facts decode: %w", err)
	}
	if body.Status != 1 || body.Product == nil {
		util.LoggerFromContext(ctx).Debug("barcode_not_found", "code", code)
		return domain.FoodProduct{}, false, nil
	}
	p := body.Product
	n := p.Nutriments
	return domain.FoodProduct{
		Code:     code,
		Name:     strings.TrimSpace(p.ProductName),
		Brands:   strings.TrimSpace(p.Brands),
		Calories: float64(n.EnergyKcal),
		Protein:  float64(n.Proteins),
		Carbs:    float64(n.Carbohydrates),
		Fats:     float64(n.Fat),
		Fiber:    float64(n.Fiber),
		Sugar:    float64(n.Sugars),
		Sodium:   float64(n.Sodium),
	}, true, nil
}

type productResponse struct {
	Status  int      `json:"status"`
	Code    string   `json:"code"`
	Product *product `json:"product"`
}

type product struct {
	ProductName string     `json:"product_name"`
	Brands      string     `json:"brands"`
	Nutriments  nutriments `json:"nutriments"`
}

// per 100 g
type nutriments struct {
	EnergyKcal    flexFloat `json:"energy-kcal_100g"`
	Proteins      flexFloat `json:"proteins_100g"`
	Carbohydrates flexFloat `json:"carbohydrates_100g"`
	Fat           flexFloat `json:"fat_100g"`
	Fiber         flexFloat `json:"fiber_100g"`
	Sugars        flexFloat `json:"sugars_100g"`
	Sodium        flexFloat `json:"sodium_100g"`
}

// flexFloat accepts numbers and numeric strings; anything else is 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}
