// Package catalog enriches appliances from a public product search page:
// a product image by model number and a brand guess from the model prefix.
package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"go.uber.org/zap"

	"appliance-warranty-backend/config"
)

// MinModelLength is the shortest model number worth searching for.
const MinModelLength = 3

// maxPageBytes caps how much of the search page is scanned.
const maxPageBytes = 2 << 20

var productImage = regexp.MustCompile(`(?i)img1\.kakaku\.k-img\.com/images/productimage/l/[A-Z0-9]+\.jpg`)

// Result is what a lookup could infer. Nil fields were not found.
type Result struct {
	ImageURL *string `json:"imageUrl"`
	Brand    *string `json:"brand"`
}

// Service fetches product search pages.
type Service struct {
	cfg    config.CatalogConfig
	client *http.Client
	log    *zap.Logger
}

// NewService creates a catalog client. An invalid proxy URL is logged and
// ignored.
func NewService(cfg config.CatalogConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}

	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Warn("invalid catalog proxy, connecting directly", zap.String("proxy", cfg.HTTPProxy), zap.Error(err))
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &Service{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		log: log,
	}
}

// Lookup returns the image and brand for a model number. It never fails:
// short models, network errors and pages without an image give nil fields.
func (s *Service) Lookup(ctx context.Context, model string) Result {
	model = NormalizeModel(model)
	if len([]rune(model)) < MinModelLength {
		return Result{}
	}

	var res Result
	if brand, ok := GuessBrand(model); ok {
		res.Brand = &brand
	}

	img, err := s.imageURL(ctx, model)
	if err != nil {
		s.log.Debug("catalog image lookup failed", zap.String("model", model), zap.Error(err))
		return res
	}
	if img != "" {
		res.ImageURL = &img
	}
	return res
}

func (s *Service) imageURL(ctx context.Context, model string) (string, error) {
	u, err := url.Parse(s.cfg.SearchURL)
	if err != nil {
		return "", fmt.Errorf("invalid search url: %w", err)
	}
	q := u.Query()
	q.Set("query", model)
	q.Set("category", "0020")
	q.Set("act", "Input")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept-Language", "ja-JP,ja;q=0.9")
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	match := productImage.Find(body)
	if match == nil {
		return "", nil
	}
	return "https://" + string(match), nil
}
