// Package webhookpubsub delivers order events to webhook endpoints. Requests
// to secured endpoints carry a JWT signed with the subscription secret.
package webhookpubsub

import (
	"fmt"
	"time"

	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	"github.com/darkswap-network/darkswap-daemon/pkg/circuitbreaker"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
)

const defaultRequestTimeout = 15 * time.Second

type service struct {
	store      *store
	httpClient *client
	cb         *gobreaker.CircuitBreaker
}

func NewService(requestTimeout time.Duration) ports.SubscriptionManager {
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	return &service{
		store:      newStore(),
		httpClient: newHTTPClient(requestTimeout),
		cb:         circuitbreaker.NewCircuitBreaker("webhook"),
	}
}

func (ws *service) Subscribe(topic, endpoint, secret string) (string, error) {
	sub, err := NewSubscription(topic, endpoint, secret)
	if err != nil {
		return "", err
	}

	ws.store.add(*sub)
	log.WithField("topic", topic).Debugf("added webhook %s", sub.ID)
	return sub.ID, nil
}

func (ws *service) Unsubscribe(_, id string) error {
	if !ws.store.remove(id) {
		return fmt.Errorf("webhook not found")
	}
	return nil
}

func (ws *service) ListSubscriptionsForTopic(topic string) []ports.Subscription {
	return ws.listSubscriptionsForTopic(topic).toPortable()
}

func (ws *service) Publish(topic string, message string) error {
	subs := ws.listSubscriptionsForTopic(topic)

	eg := &errgroup.Group{}
	for i := range subs {
		sub := subs[i]
		eg.Go(func() error { return ws.doRequest(sub, message) })
	}
	return eg.Wait()
}

func (ws *service) Close() error {
	ws.httpClient.CloseIdleConnections()
	return nil
}

func (ws *service) listSubscriptionsForTopic(topic string) subscriptions {
	subs := ws.store.get(topic)
	if topic != ports.AnyTopic && topic != ports.UnspecifiedTopic {
		subs = append(subs, ws.store.get(ports.AnyTopic)...)
	}
	return subs
}

func (ws *service) doRequest(sub Subscription, payload string) error {
	_, err := ws.cb.Execute(func() (interface{}, error) {
		return nil, ws.httpClient.deliver(sub, payload)
	})
	return err
}
