// Package pokeapi fetches creature metadata from a PokeAPI-compatible REST
// service, with retry on transient failures and an optional local cache.
//
//	client := pokeapi.NewClient(pokeapi.Config{})
//	rec, err := client.GetPokemon(ctx, 25)
package pokeapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/pokethrow/pokethrow-desktop/internal/pokemon"
)

// DefaultBaseURL is the public PokeAPI v2 endpoint.
const DefaultBaseURL = "https://pokeapi.co/api/v2"

// Cache stores fetched records between runs.
type Cache interface {
	Get(ctx context.Context, id int) (pokemon.Record, bool, error)
	Put(ctx context.Context, rec pokemon.Record) error
}

// Config holds configuration for the metadata client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// MaxRetries is the maximum number of retry attempts for retryable errors.
	// Defaults to 3 if zero; negative disables retries.
	MaxRetries int

	// BaseRetryDelay is the initial delay before the first retry.
	// Defaults to 500ms if zero.
	BaseRetryDelay time.Duration

	// MaxRetryDelay caps the exponential backoff delay.
	// Defaults to 5 seconds if zero.
	MaxRetryDelay time.Duration

	// HTTPClient allows injecting a custom HTTP client.
	// Defaults to a client with 15s timeout.
	HTTPClient *http.Client

	UserAgent string

	// Cache is optional. Cache failures are logged and never fail a fetch.
	Cache Cache

	Logger *log.Logger
}

// Client is a PokeAPI client.
type Client struct {
	config Config
	http   *http.Client
	logger *log.Logger
}

// NewClient creates a new client with the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseRetryDelay == 0 {
		cfg.BaseRetryDelay = 500 * time.Millisecond
	}
	if cfg.MaxRetryDelay == 0 {
		cfg.MaxRetryDelay = 5 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "pokethrow-desktop"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Client{config: cfg, http: httpClient, logger: logger}
}

// BaseURL returns the configured endpoint.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// GetPokemon returns the record for id, from the cache when possible.
func (c *Client) GetPokemon(ctx context.Context, id int) (pokemon.Record, error) {
	if id <= 0 {
		return pokemon.Record{}, fmt.Errorf("pokeapi: invalid id %d", id)
	}

	if c.config.Cache != nil {
		rec, ok, err := c.config.Cache.Get(ctx, id)
		if err != nil {
			c.logger.Printf("pokeapi: cache get %d: %v", id, err)
		} else if ok {
			return rec, nil
		}
	}

	rec, err := c.getWithRetry(ctx, id)
	if err != nil {
		return pokemon.Record{}, err
	}

	if c.config.Cache != nil {
		if err := c.config.Cache.Put(ctx, rec); err != nil {
			c.logger.Printf("pokeapi: cache put %d: %v", id, err)
		}
	}
	return rec, nil
}

// Fetch implements bridge.Fetcher.
func (c *Client) Fetch(ctx context.Context, id int) (pokemon.Record, error) {
	return c.GetPokemon(ctx, id)
}

func (c *Client) getWithRetry(ctx context.Context, id int) (pokemon.Record, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay(attempt)):
			case <-ctx.Done():
				return pokemon.Record{}, ctx.Err()
			}
		}

		rec, err := c.get(ctx, id)
		if err == nil {
			return rec, nil
		}
		lastErr = err

		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.IsRetryable() {
			continue
		}
		return pokemon.Record{}, err
	}

	return pokemon.Record{}, fmt.Errorf("pokeapi: max retries exceeded: %w", lastErr)
}

// get sends a single GET and decodes the response.
func (c *Client) get(ctx context.Context, id int) (pokemon.Record, error) {
	url := fmt.Sprintf("%s/pokemon/%d", strings.TrimRight(c.config.BaseURL, "/"), id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return pokemon.Record{}, fmt.Errorf("pokeapi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return pokemon.Record{}, fmt.Errorf("pokeapi: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return pokemon.Record{}, fmt.Errorf("pokeapi: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return pokemon.Record{}, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return decodeRecord(id, body)
}

// retryDelay calculates the backoff delay for a given attempt number.
func (c *Client) retryDelay(attempt int) time.Duration {
	delay := c.config.BaseRetryDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > c.config.MaxRetryDelay {
		delay = c.config.MaxRetryDelay
	}
	return delay
}
