package pubsub

import (
	"encoding/json"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

const (
	EventOrderUpdated   = "ORDER_UPDATED"
	EventOrderSettled   = "ORDER_SETTLED"
	EventOrderCancelled = "ORDER_CANCELLED"
)

// Service fans order events out to the configured publishers. Publishing is
// best effort: failures are logged and never affect the caller's flow.
type Service struct {
	publishers []ports.Publisher
}

func NewService(publishers ...ports.Publisher) *Service {
	pubs := make([]ports.Publisher, 0, len(publishers))
	for _, p := range publishers {
		if p != nil {
			pubs = append(pubs, p)
		}
	}
	return &Service{pubs}
}

func (s *Service) PublishOrderEvent(order domain.Order, event domain.OrderEvent) {
	if s == nil || len(s.publishers) <= 0 {
		return
	}

	topic := topicForStatus(event.Status)
	payload := map[string]interface{}{
		"event": topic,
		"order": getOrderPayload(order),
		"status": map[string]interface{}{
			"code":  int(event.Status),
			"label": event.Status.String(),
		},
		"timestamp": event.CreatedAt,
	}
	if event.Status == domain.OrderStatusSettled {
		payload["txid"] = order.TxHashSettled
	}
	message, _ := json.Marshal(payload)

	for _, p := range s.publishers {
		if err := p.Publish(topic, string(message)); err != nil {
			log.WithError(err).WithField("order", order.ID).Warnf(
				"failed to publish %s event", topic,
			)
		}
	}
}

func (s *Service) Close() {
	for _, p := range s.publishers {
		if err := p.Close(); err != nil {
			log.WithError(err).Warn("failed to close publisher")
		}
	}
}
