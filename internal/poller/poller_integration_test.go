package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Angmiin/buccynew/internal/cache"
	"github.com/Angmiin/buccynew/internal/domain"
	"github.com/Angmiin/buccynew/internal/repository"
	"github.com/Angmiin/buccynew/internal/service"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"gotest.tools/v3/assert"
)

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func setupMongo(t *testing.T) (repository.CartRepository, func()) {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := repository.ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)
	require.NoError(t, repository.RunMigrations(uri, "testdb"))

	cleanup := func() {
		_ = db.Client().Disconnect(ctx)
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repository.NewMongoRepository(db), cleanup
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestPoller_ClearsCartOnCheckoutEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("starts kafka and mongo containers")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cartCache := cache.NewCartCache(client)

	repo, cleanupMongo := setupMongo(t)
	defer cleanupMongo()
	broker, cleanupKafka := setupKafka(t)
	defer cleanupKafka()

	const topic = "checkout-outbox"
	createTopic(t, broker, topic)

	carts := service.NewCartService(repo, nil, cartCache, discardLogger())
	p := NewPoller(carts, Config{Brokers: []string{broker}, Topic: topic, GroupID: "storefront-cart-test"}, discardLogger())
	defer p.Close()

	require.NoError(t, repo.AddItem(ctx, "123", domain.CartItem{ProductID: "p1", Quantity: 1}))
	cart, err := repo.GetCart(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, 1, len(cart.Items))
	require.NoError(t, cartCache.Set(ctx, "123", cart))

	w := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafkaGo.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	payload, err := json.Marshal(map[string]interface{}{
		"checkout_id":  "chId",
		"user_id":      "123",
		"total_amount": "1",
		"completed_at": time.Time{},
	})
	require.NoError(t, err)
	require.NoError(t, w.WriteMessages(ctx, kafkaGo.Message{
		Key:     []byte("chId"),
		Value:   payload,
		Headers: []kafkaGo.Header{{Key: "event_type", Value: []byte("checkout")}},
	}))
	require.NoError(t, w.Close())

	go p.Run(ctx)

	require.Eventually(t, func() bool {
		c, err := repo.GetCart(ctx, "123")
		return err == nil && len(c.Items) == 0
	}, 30*time.Second, 500*time.Millisecond)

	require.Eventually(t, func() bool {
		_, err := cartCache.Get(ctx, "123")
		return errors.Is(err, cache.ErrCacheMiss)
	}, 15*time.Second, 500*time.Millisecond)
}
