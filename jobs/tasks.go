package jobs

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskQuoteAnnotate computes the system note of an issued quote.
	TaskQuoteAnnotate = "quote:annotate"
	// TaskRatesWarmup refreshes cached market hotel rates.
	TaskRatesWarmup = "rates:warmup"
)

// QuoteAnnotatePayload identifies the quote to annotate.
type QuoteAnnotatePayload struct {
	QuoteID string `json:"quote_id"`
}

// NewQuoteAnnotateTask constructs an Asynq task.
func NewQuoteAnnotateTask(quoteID string) (*asynq.Task, error) {
	quoteID = strings.TrimSpace(quoteID)
	if quoteID == "" {
		return nil, fmt.Errorf("jobs: quote id required")
	}
	data, err := json.Marshal(QuoteAnnotatePayload{QuoteID: quoteID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuoteAnnotate, data), nil
}

// RatesWarmupPayload narrows the warmup to specific cities or star ratings.
// Empty fields mean every supported value.
type RatesWarmupPayload struct {
	Locations []string `json:"locations,omitempty"`
	Stars     []int    `json:"stars,omitempty"`
}

// NewRatesWarmupTask constructs an Asynq task.
func NewRatesWarmupTask(payload RatesWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRatesWarmup, data), nil
}
