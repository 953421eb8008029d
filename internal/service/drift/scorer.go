package drift

import (
	"context"
	"fmt"
	"net/url"
	"time"

	pkghttp "InvestCore/pkg/http"
)

// HTTPScorer queries the external drift monitor for one instrument's
// current drift score.
type HTTPScorer struct {
	client  *pkghttp.Client
	baseURL string
}

func NewHTTPScorer(baseURL string, timeout time.Duration) *HTTPScorer {
	return &HTTPScorer{
		client:  pkghttp.NewClient(pkghttp.WithTimeout(timeout)),
		baseURL: baseURL,
	}
}

type scoreResponse struct {
	Instrument string  `json:"instrument"`
	Score      float64 `json:"score"`
}

func (s *HTTPScorer) Score(ctx context.Context, instrument string) (float64, error) {
	u := s.baseURL + "?instrument=" + url.QueryEscape(instrument)
	var resp scoreResponse
	if err := s.client.GetJSON(ctx, u, &resp); err != nil {
		return 0, fmt.Errorf("drift score for %s: %w", instrument, err)
	}
	return resp.Score, nil
}
