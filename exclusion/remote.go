package exclusion

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/warp/voucher-engine/voucher"
)

// =============================================================================
// REMOTE CLASSIFIER - HTTP classification service client
// =============================================================================

// RemoteClassifier calls an external classification service that speaks
// the DistinctValues/DecisionSet JSON contract on POST /classify.
type RemoteClassifier struct {
	client *resty.Client
}

func NewRemoteClassifier(baseURL string) *RemoteClassifier {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &RemoteClassifier{client: client}
}

func (c *RemoteClassifier) Name() string { return "remote" }

func (c *RemoteClassifier) Classify(ctx context.Context, values DistinctValues) (*DecisionSet, error) {
	var decisions DecisionSet
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(values).
		SetResult(&decisions).
		Post("/classify")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", voucher.ErrClassifierUnavailable, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", voucher.ErrClassifierUnavailable, resp.StatusCode())
	}
	if err := decisions.Validate(); err != nil {
		return nil, err
	}
	return &decisions, nil
}
