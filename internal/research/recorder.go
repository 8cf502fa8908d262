package research

import (
	"context"

	"github.com/ppiankov/veritas/internal/cache"
	"github.com/ppiankov/veritas/internal/index"
	"github.com/ppiankov/veritas/internal/logging"
	"github.com/ppiankov/veritas/internal/metrics"
	"github.com/ppiankov/veritas/internal/model"
	"go.uber.org/zap"
)

// Capture is a produced evidence item plus the full page text it came from.
// PageText is empty when the text is already cached.
type Capture struct {
	Evidence model.Evidence
	PageText string
}

// Recorder persists evidence to the URL cache and the vector index.
// Write failures are logged and never reach the caller.
type Recorder struct {
	cache  *cache.URLCache
	index  index.Index
	logger *zap.Logger
}

// NewRecorder creates a recorder; either store may be nil
func NewRecorder(urlCache *cache.URLCache, idx index.Index, logger *zap.Logger) *Recorder {
	return &Recorder{cache: urlCache, index: idx, logger: logging.OrNop(logger).Named("recorder")}
}

// Record writes captures for a claim
func (r *Recorder) Record(ctx context.Context, claim model.Claim, captures []Capture) {
	if r == nil {
		return
	}

	if r.cache != nil {
		for _, c := range captures {
			if c.PageText == "" {
				continue
			}
			md := map[string]any{"title": c.Evidence.Title, "source": "search"}
			if err := r.cache.Set(ctx, c.Evidence.URL, c.PageText, cache.WithMetadata(md)); err != nil {
				r.fail("cache", claim, err)
			}
		}
	}

	if r.index != nil {
		docs := make([]index.Document, 0, len(captures))
		for _, c := range captures {
			ev := c.Evidence
			if ev.Content == "" {
				continue
			}
			docs = append(docs, index.Document{
				ID:   index.DocumentID(claim.ID + "\n" + ev.URL + "\n" + ev.Content),
				Text: ev.Content,
				Metadata: map[string]any{
					index.ClaimIDKey:           claim.ID,
					"claim_text":               claim.Text,
					"url":                      ev.URL,
					"title":                    ev.Title,
					"agent":                    ev.Agent,
					"supports_claim":           ev.SupportsClaim,
					"source_reliability_score": ev.SourceReliabilityScore,
				},
			})
		}
		if len(docs) > 0 {
			if err := r.index.AddDocuments(ctx, docs); err != nil {
				r.fail("index", claim, &cache.PersistenceError{Store: "index", Op: "add", Key: claim.ID, Err: err})
			}
		}
	}
}

func (r *Recorder) fail(store string, claim model.Claim, err error) {
	metrics.PersistenceFailures.WithLabelValues(store).Inc()
	r.logger.Warn("persistence failed, continuing",
		zap.String("store", store),
		zap.String("claim_id", claim.ID),
		zap.Error(err))
}
