// Package latex fetches rendered PNG images of LaTeX formulas from a codecogs-style
// HTTP renderer.
package latex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"math-bot/api/internal/util"
)

var ErrRender = errors.New("latex render failed")

var errNotImage = errors.New("renderer returned a non-image body")

const maxImageBytes = 5 << 20

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Retries    uint64
	Backoff    time.Duration
	Log        *zap.Logger
}

func New(baseURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 20 * time.Second},
		Retries:    3,
		Backoff:    300 * time.Millisecond,
		Log:        log,
	}
}

// URL собирает адрес картинки: белый текст, т.к. фон у чатов обычно тёмный.
func (c *Client) URL(formula string) string {
	// формула идёт в query: "+" должен стать %2B, пробел %20
	return c.BaseURL + strings.ReplaceAll(url.QueryEscape(`\color{white}{`+formula+`}`), "+", "%20")
}

// Render возвращает PNG. 5xx и сетевые ошибки повторяются с экспоненциальной паузой.
func (c *Client) Render(ctx context.Context, formula string) ([]byte, error) {
	u := c.URL(formula)
	b := retry.WithMaxRetries(c.Retries, retry.NewExponential(c.Backoff))

	var out []byte
	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		data, err := c.fetch(ctx, u)
		if err == nil {
			out = data
			return nil
		}
		if errors.Is(err, errNotImage) {
			return err
		}
		var se *statusError
		if errors.As(err, &se) && se.code < 500 && se.code != http.StatusTooManyRequests {
			return err
		}
		c.Log.Debug("latex render retry", zap.Int("attempt", attempt), zap.Error(err))
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return out, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string { return fmt.Sprintf("status %d: %s", e.code, e.body) }

func (c *Client) fetch(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{code: resp.StatusCode, body: string(b)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty image")
	}
	// codecogs отвечает 200 с HTML, если формула не разобралась
	if util.SniffImage(data) == "" {
		return nil, errNotImage
	}
	return data, nil
}
