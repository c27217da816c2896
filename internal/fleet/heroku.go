package fleet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Iron-Ham/dynoscaler/internal/config"
	"github.com/Iron-Ham/dynoscaler/internal/errors"
)

const (
	herokuAccept        = "application/vnd.heroku+json; version=3"
	defaultHerokuAPIURL = "https://api.heroku.com"
)

// formation is the subset of a Heroku formation object used here.
type formation struct {
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
	Size     string `json:"size"`
}

// Heroku scales one process type of a Heroku app through the platform API.
type Heroku struct {
	client  *http.Client
	baseURL string
	app     string
	process string
	token   string
}

// NewHeroku creates a Heroku controller. client may be nil to use a client
// whose timeout is cfg.Timeout.
func NewHeroku(cfg config.HerokuConfig, timeout time.Duration, client *http.Client) (*Heroku, error) {
	if cfg.App == "" {
		return nil, errors.NewConfigError("heroku app is empty", errors.ErrMissingSetting).
			WithField("fleet.heroku.app")
	}
	if cfg.Token == "" {
		return nil, errors.NewConfigError("heroku token is empty", errors.ErrMissingSetting).
			WithField("fleet.heroku.token")
	}
	if cfg.Process == "" {
		return nil, errors.NewConfigError("heroku process type is empty", errors.ErrMissingSetting).
			WithField("fleet.heroku.process")
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	base := cfg.APIURL
	if base == "" {
		base = defaultHerokuAPIURL
	}
	return &Heroku{
		client:  client,
		baseURL: strings.TrimRight(base, "/"),
		app:     cfg.App,
		process: cfg.Process,
		token:   cfg.Token,
	}, nil
}

// Name returns "heroku".
func (h *Heroku) Name() string { return config.FleetProviderHeroku }

// GetSize returns the quantity of the configured process type. When no
// formation has that type, the first formation is used.
func (h *Heroku) GetSize(ctx context.Context) (int, error) {
	req, err := h.newRequest(ctx, http.MethodGet, "/apps/"+url.PathEscape(h.app)+"/formation", nil)
	if err != nil {
		return 0, err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list formations")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("%w: list formations returned %d", errors.ErrBadStatusCode, resp.StatusCode)
	}

	var formations []formation
	if err := json.NewDecoder(resp.Body).Decode(&formations); err != nil {
		return 0, fmt.Errorf("%w: %v", errors.ErrDecodeResponse, err)
	}

	f, ok := pickFormation(formations, h.process)
	if !ok {
		return 0, errors.ErrNoFormation
	}
	return f.Quantity, nil
}

// SetSize updates the quantity of the configured process type. A non-2xx
// response is returned as its status code with a nil error.
func (h *Heroku) SetSize(ctx context.Context, n int) (int, error) {
	body, err := json.Marshal(map[string]int{"quantity": n})
	if err != nil {
		return 0, errors.Wrap(err, "failed to encode formation update")
	}

	path := "/apps/" + url.PathEscape(h.app) + "/formation/" + url.PathEscape(h.process)
	req, err := h.newRequest(ctx, http.MethodPatch, path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "failed to update formation")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func (h *Heroku) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Accept", herokuAccept)
	req.Header.Set("Authorization", "Bearer "+h.token)
	return req, nil
}

func pickFormation(formations []formation, process string) (formation, bool) {
	if len(formations) == 0 {
		return formation{}, false
	}
	for _, f := range formations {
		if f.Type == process {
			return f, true
		}
	}
	return formations[0], true
}
