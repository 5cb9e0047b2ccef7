package api

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	cqrsevents "github.com/danghamo/posture/internal/cqrs"
	cqrshandlers "github.com/danghamo/posture/internal/cqrs/handlers"
	"github.com/danghamo/posture/pkg/logger"
	"github.com/danghamo/posture/pkg/redisx"
)

// Feed transports
const (
	TransportGoChannel = "gochannel"
	TransportRedis     = "redis"
)

// FeedConfig holds alert event transport configuration
type FeedConfig struct {
	Transport   string
	TopicPrefix string
	BufferSize  int
}

// Events owns the watermill pub/sub, router, event bus and event processor
// carrying posture alert events.
type Events struct {
	publisher   message.Publisher
	subscriber  message.Subscriber
	router      *message.Router
	eventBus    *cqrs.EventBus
	processor   *cqrs.EventProcessor
	hasHandlers bool
	baseLogger  *logger.Logger
	logger      *logger.Logger
}

// NewEvents builds the event stack on the configured transport. redisClient
// is required for the redis transport only.
func NewEvents(cfg FeedConfig, redisClient *redisx.Client, log *logger.Logger) (*Events, error) {
	eventsLogger := log.WithComponent("events")
	watermillLogger := newWatermillLogger(log)

	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "posture-events"
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 64
	}

	var (
		publisher  message.Publisher
		subscriber message.Subscriber
		err        error
	)

	switch cfg.Transport {
	case TransportRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis transport requires a redis client")
		}

		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient.Client,
			},
			watermillLogger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create publisher: %w", err)
		}

		subscriber, err = redisstream.NewSubscriber(
			redisstream.SubscriberConfig{
				Client:        redisClient.Client,
				ConsumerGroup: fmt.Sprintf("postured-%s", instanceID()),
			},
			watermillLogger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create subscriber: %w", err)
		}
	case TransportGoChannel, "":
		pubSub := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: int64(cfg.BufferSize),
		}, watermillLogger)
		publisher, subscriber = pubSub, pubSub
	default:
		return nil, fmt.Errorf("unknown feed transport: %s", cfg.Transport)
	}

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 5 * time.Second,
	}, watermillLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	// Topics are "<prefix>.<EventName>"
	marshaler := cqrs.JSONMarshaler{GenerateName: cqrs.StructName}
	topic := func(eventName string) string {
		return fmt.Sprintf("%s.%s", cfg.TopicPrefix, eventName)
	}

	eventBus, err := cqrs.NewEventBusWithConfig(
		publisher,
		cqrs.EventBusConfig{
			GeneratePublishTopic: func(params cqrs.GenerateEventPublishTopicParams) (string, error) {
				return topic(params.EventName), nil
			},
			Marshaler: marshaler,
			Logger:    watermillLogger,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}

	processor, err := cqrs.NewEventProcessorWithConfig(
		router,
		cqrs.EventProcessorConfig{
			GenerateSubscribeTopic: func(params cqrs.EventProcessorGenerateSubscribeTopicParams) (string, error) {
				return topic(params.EventName), nil
			},
			SubscriberConstructor: func(params cqrs.EventProcessorSubscriberConstructorParams) (message.Subscriber, error) {
				return subscriber, nil
			},
			Marshaler: marshaler,
			Logger:    watermillLogger,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event processor: %w", err)
	}

	eventsLogger.Info("Event stack ready",
		zap.String("transport", cfg.Transport),
		zap.String("topic_prefix", cfg.TopicPrefix))

	return &Events{
		publisher:  publisher,
		subscriber: subscriber,
		router:     router,
		eventBus:   eventBus,
		processor:  processor,
		baseLogger: log,
		logger:     eventsLogger,
	}, nil
}

// EventBus returns the bus the alert feed publishes to
func (e *Events) EventBus() cqrsevents.EventPublisher {
	return e.eventBus
}

// ForwardToSSE registers the handlers that push alert events to stream clients
func (e *Events) ForwardToSSE(broadcaster cqrshandlers.SSEBroadcaster) error {
	handler := cqrshandlers.NewSSEEventHandler(broadcaster, e.baseLogger)

	err := e.processor.AddHandlers(
		cqrs.NewEventHandler("PostureAlertRaisedSSEHandler", handler.HandlePostureAlertRaisedEvent),
		cqrs.NewEventHandler("PostureAlertClearedSSEHandler", handler.HandlePostureAlertClearedEvent),
	)
	if err != nil {
		return fmt.Errorf("failed to register event handlers: %w", err)
	}

	e.hasHandlers = true
	return nil
}

// Run starts the router and returns once it is consuming. Without
// registered handlers there is nothing to consume and Run returns at once.
func (e *Events) Run(ctx context.Context) error {
	if !e.hasHandlers {
		return nil
	}

	go func() {
		if err := e.router.Run(ctx); err != nil {
			e.logger.Error("Watermill router error", zap.Error(err))
		}
	}()

	select {
	case <-e.router.Running():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the router and closes the transport
func (e *Events) Close() error {
	if e.hasHandlers {
		e.logger.Info("Closing Watermill router")
		if err := e.router.Close(); err != nil {
			e.logger.Error("Router shutdown error", zap.Error(err))
		}
	}

	if err := e.publisher.Close(); err != nil {
		return fmt.Errorf("failed to close publisher: %w", err)
	}
	if any(e.subscriber) != any(e.publisher) {
		if err := e.subscriber.Close(); err != nil {
			return fmt.Errorf("failed to close subscriber: %w", err)
		}
	}
	return nil
}

func instanceID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d", hostname, time.Now().UnixNano())
}
