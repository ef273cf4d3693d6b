package pageintel

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/1genadam/tileshop-rag-sub001/observability"
)

// BatchResult is the outcome of one URL inside a batch extraction.
type BatchResult struct {
	URL    string         `json:"url"`
	Record *ProductRecord `json:"record,omitempty"`
	Report *Report        `json:"report,omitempty"`
	Err    string         `json:"error,omitempty"`
}

// ExtractAll runs the pipeline over many URLs through a bounded worker
// pool with a shared rate limit toward the catalog. Results keep input
// order. A canceled context stops dispatching; in-flight runs finish.
func (s *Service) ExtractAll(ctx context.Context, urls []string) []BatchResult {
	results := make([]BatchResult, len(urls))
	limiter := rate.NewLimiter(rate.Limit(s.config.RatePerSecond), s.config.RateBurst)
	sem := make(chan struct{}, s.config.Workers)

	var wg sync.WaitGroup
	for i, url := range urls {
		if err := limiter.Wait(ctx); err != nil {
			results[i] = BatchResult{URL: url, Err: err.Error()}
			continue
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			results[i] = BatchResult{URL: url, Err: ctx.Err().Error()}
			continue
		}

		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			defer func() { <-sem }()

			rec, rep, err := s.Extract(ctx, url)
			if err != nil {
				results[i] = BatchResult{URL: url, Err: err.Error()}
				return
			}
			results[i] = BatchResult{URL: url, Record: rec, Report: rep}
		}(i, url)
	}
	wg.Wait()

	if s.metrics != nil {
		s.metrics.RecordSimple(observability.MetricBatchSize, float64(len(urls)), "count")
	}
	if s.events != nil {
		failed := 0
		for _, res := range results {
			if res.Err != "" {
				failed++
			}
		}
		s.events.Log(ctx, observability.Event{
			Type:    observability.EventBatchComplete,
			Detail:  fmt.Sprintf("urls=%d failed=%d", len(urls), failed),
			Success: failed == 0,
		})
	}
	return results
}
