package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/ferriscommerce/fabric/internal/model"
)

func TestPublishOnNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	err := p.Publish(context.Background(), 1, model.Order{ID: 1}, true, time.Now())
	if err != nil {
		t.Fatalf("nil publisher must not error, got %v", err)
	}
}
