//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"creator_mirror/internal/domain"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) TestPublisher_Connection() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange",
		RoutingKey: "test-routing-key",
		QueueName:  "test-queue",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.NoError(err)
	s.NotNil(pub)

	err = pub.Close()
	s.NoError(err)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishOutcomes() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-outcomes",
		RoutingKey: "test-routing-key-outcomes",
		QueueName:  "test-queue-outcomes",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	item := &domain.ContentItem{
		ItemID:     "7001",
		Desc:       "a clip",
		ShareURL:   "https://share/7001",
		SubjectUID: "u1",
		Nickname:   "alice",
		Platform:   "douyin",
		CreateTime: 1700000100,
		Type:       domain.ContentTypeVideo,
	}

	for _, outcome := range []domain.ItemOutcome{domain.ItemSynced, domain.ItemDownloaded} {
		err = pub.Publish(s.ctx, item, outcome)
		s.NoError(err)

		msg := s.consumeMessage(cfg)
		s.Require().NotNil(msg)

		var received ItemEvent
		err = json.Unmarshal(msg.Body, &received)
		s.NoError(err)
		s.Equal(outcome, received.Outcome)
		s.Equal("7001", received.Item.ItemID)
		s.Equal("u1", received.Item.SubjectUID)
		s.False(received.Timestamp.IsZero())
	}
}

func (s *RabbitMQIntegrationSuite) TestPublisher_MessageFormat() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-format",
		RoutingKey: "test-routing-key-format",
		QueueName:  "test-queue-format",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	item := &domain.ContentItem{
		ItemID:     "9002",
		Desc:       "a gallery",
		ShareURL:   "https://share/9002",
		SubjectUID: "u2",
		Nickname:   "bob",
		Platform:   "tiktok",
		CreateTime: 1700000200,
		Type:       domain.ContentTypeGallery,
	}

	err = pub.Publish(s.ctx, item, domain.ItemSkipped)
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)

	s.Equal("application/json", msg.ContentType)
	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)

	var received ItemEvent
	err = json.Unmarshal(msg.Body, &received)
	s.NoError(err)
	s.Equal(domain.ItemSkipped, received.Outcome)
	s.Equal(domain.ContentTypeGallery, received.Item.Type)
	s.Equal("tiktok", received.Item.Platform)
	s.Equal(int64(1700000200), received.Item.CreateTime)
}

func (s *RabbitMQIntegrationSuite) consumeMessage(cfg Config) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
		return nil
	}
}
