package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/Iron-Ham/dynoscaler/internal/config"
	"github.com/Iron-Ham/dynoscaler/internal/errors"
)

// Elasticsearch indexes each record as a document whose id is the record
// timestamp. The index is refreshed on every write so dashboards see the
// cycle immediately.
type Elasticsearch struct {
	client  *elasticsearch.Client
	index   string
	timeout time.Duration
}

// NewElasticsearch creates an Elasticsearch sink. transport may be nil to
// use the client default.
func NewElasticsearch(cfg config.ElasticsearchConfig, transport http.RoundTripper) (*Elasticsearch, error) {
	if !cfg.Enabled() {
		return nil, errors.NewConfigError("elasticsearch addresses are empty", errors.ErrMissingSetting).
			WithField("telemetry.elasticsearch.addresses")
	}
	if cfg.Index == "" {
		return nil, errors.NewConfigError("elasticsearch index is empty", errors.ErrMissingSetting).
			WithField("telemetry.elasticsearch.index")
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, errors.NewConfigError("unable to create elasticsearch client", err)
	}

	return &Elasticsearch{
		client:  client,
		index:   cfg.Index,
		timeout: cfg.Timeout,
	}, nil
}

// Name returns "elasticsearch".
func (s *Elasticsearch) Name() string { return "elasticsearch" }

// Record indexes rec.
func (s *Elasticsearch) Record(ctx context.Context, rec Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "failed to encode record")
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithDocumentID(documentID(rec)),
		s.client.Index.WithRefresh("true"),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return errors.Wrap(err, "index request failed")
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.IsError() {
		return fmt.Errorf("%w: index %s returned %s", errors.ErrBadStatusCode, s.index, res.Status())
	}
	return nil
}

func documentID(rec Record) string {
	return rec.Timestamp.UTC().Format(time.RFC3339Nano)
}
