package ports

const AnyTopic = "*"
const UnspecifiedTopic = ""

type Subscription interface {
	Topic() string
	Id() string
	IsSecured() bool
	NotifyAt() string
}

// Publisher delivers messages to external subscribers.
type Publisher interface {
	// Publish sends the message to every subscriber of the topic.
	Publish(topic string, message string) error
	Close() error
}

// SubscriptionManager is implemented by publishers that keep per-topic
// subscriptions, like webhooks.
type SubscriptionManager interface {
	Publisher
	Subscribe(topic, endpoint, secret string) (string, error)
	Unsubscribe(topic, id string) error
	ListSubscriptionsForTopic(topic string) []Subscription
}
