package server

import (
	"context"
	"encoding/json"

	"esim-service/internal/biz"
	"esim-service/internal/conf"
	"esim-service/internal/constants"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

// PaymentEvent is the payment-gateway event relayed over the message bus.
type PaymentEvent struct {
	SessionID string `json:"session_id"`
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
}

// MQConsumerServer consumes payment events from RocketMQ and drives the
// idempotent confirm flow, so renewals complete even when the client never
// hits the confirm endpoint.
type MQConsumerServer struct {
	c       rocketmq.PushConsumer
	renewal *biz.RenewalOrderUseCase
	conf    *conf.Rocketmq
	log     *log.Helper
	enabled bool
}

// NewMQConsumerServer creates a RocketMQ consumer server
func NewMQConsumerServer(c *conf.Bootstrap, renewal *biz.RenewalOrderUseCase, logger log.Logger) *MQConsumerServer {
	helper := log.NewHelper(logger)
	if c.Data == nil || c.Data.Rocketmq == nil || !c.Data.Rocketmq.Enabled {
		return &MQConsumerServer{enabled: false, log: helper}
	}
	mqConf := c.Data.Rocketmq

	r, err := rocketmq.NewPushConsumer(
		consumer.WithNsResolver(primitive.NewPassthroughResolver(mqConf.NameServers)),
		consumer.WithGroupName(mqConf.GroupName),
		consumer.WithRetry(mqConf.RetryTimes),
	)
	if err != nil {
		helper.Errorf("init consumer error: %v", err)
		return &MQConsumerServer{enabled: false, log: helper}
	}

	return &MQConsumerServer{
		c:       r,
		renewal: renewal,
		conf:    mqConf,
		log:     helper,
		enabled: true,
	}
}

// Start starts the consumer
func (s *MQConsumerServer) Start(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		s.log.Infof("MQConsumerServer is disabled, skipping startup")
		return nil
	}

	s.log.Infof("Starting MQConsumerServer, topic: %s", s.conf.Topic)

	if err := s.c.Subscribe(s.conf.Topic, consumer.MessageSelector{}, s.handler); err != nil {
		// The broker may be unavailable in development; do not block startup.
		s.log.Errorf("Failed to subscribe to topic %s: %v", s.conf.Topic, err)
		return nil
	}
	if err := s.c.Start(); err != nil {
		s.log.Errorf("Failed to start RocketMQ consumer: %v", err)
		return nil
	}
	return nil
}

// Stop stops the consumer
func (s *MQConsumerServer) Stop(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		return nil
	}
	s.log.Info("Stopping MQConsumerServer")
	return s.c.Shutdown()
}

func (s *MQConsumerServer) handler(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
	for _, msg := range msgs {
		var event PaymentEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			s.log.Errorf("Unmarshal payment event failed: %v, body: %s", err, string(msg.Body))
			continue
		}
		if event.Status != constants.PaymentEventStatusSuccess || event.SessionID == "" {
			continue
		}

		// ConfirmPayment is idempotent; redelivery is harmless.
		if _, err := s.renewal.ConfirmPayment(ctx, event.SessionID); err != nil {
			s.log.Errorf("ConfirmPayment from event failed: session_id=%s, error=%v", event.SessionID, err)
			return consumer.ConsumeRetryLater, nil
		}
		s.log.Infof("Payment event processed: session_id=%s, order_id=%s", event.SessionID, event.OrderID)
	}
	return consumer.ConsumeSuccess, nil
}
