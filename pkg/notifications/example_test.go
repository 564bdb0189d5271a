package notifications_test

import (
	"context"
	"fmt"
	"log"

	"github.com/dmitrymomot/notifykit/migrations"
	"github.com/dmitrymomot/notifykit/pkg/config"
	"github.com/dmitrymomot/notifykit/pkg/email"
	"github.com/dmitrymomot/notifykit/pkg/logger"
	"github.com/dmitrymomot/notifykit/pkg/mongo"
	"github.com/dmitrymomot/notifykit/pkg/notifications"
	"github.com/dmitrymomot/notifykit/pkg/pg"
	"github.com/dmitrymomot/notifykit/pkg/redis"
)

func ExampleEngine_SendToUser() {
	ctx := context.Background()

	// Memory stores are suitable for development and tests; swap in the
	// Postgres/Redis/Mongo implementations for production.
	var gateway notifications.Gateway // your push provider adapter
	engine := notifications.NewEngine(
		notifications.NewMemoryStorage(),
		notifications.NewMemoryPolicyStore(),
		notifications.NewMemoryPreferenceStore(),
		notifications.NewMemoryTokenRegistry(),
		notifications.NewDispatcher(gateway),
	)

	record, err := engine.SendToUser(ctx, notifications.SendRequest{
		UserID:   "user123",
		EventKey: "order.shipped",
		Type:     notifications.TypeOrder,
		Title:    "Order shipped",
		Body:     "Your order is on its way",
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("record created:", record != nil)

	count, err := engine.GetUnreadCount(ctx, "user123")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("unread:", count)
	// Output:
	// record created: true
	// unread: 1
}

func ExampleEngine_SendBulk() {
	ctx := context.Background()

	var gateway notifications.Gateway
	engine := notifications.NewEngine(
		notifications.NewMemoryStorage(),
		notifications.NewMemoryPolicyStore(),
		notifications.NewMemoryPreferenceStore(),
		notifications.NewMemoryTokenRegistry(),
		notifications.NewDispatcher(gateway),
	)

	records, err := engine.SendBulk(ctx, []string{"user1", "user2", "user3"}, notifications.SendRequest{
		EventKey: "product.launch",
		Type:     notifications.TypeProduct,
		Title:    "New feature available",
	})
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("records created:", len(records))
	// Output: records created: 3
}

// Example_backedStores shows the production wiring: configuration from the
// environment, Postgres for records/policies/preferences with embedded
// migrations, Redis for the token registry and an email sink.
func Example_backedStores() {
	ctx := context.Background()

	var (
		pgCfg     pg.Config
		redisCfg  redis.Config
		notifyCfg notifications.Config
	)
	config.MustLoad(&pgCfg)
	config.MustLoad(&redisCfg)
	config.MustLoad(&notifyCfg)

	slogger := logger.New(logger.WithProduction("notification-engine"))

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	if err := pg.Migrate(ctx, pool, migrations.FS, pgCfg, slogger); err != nil {
		log.Fatal(err)
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		log.Fatal(err)
	}
	defer redisClient.Close()

	var gateway notifications.Gateway // your push provider adapter

	sender := email.NewDevSender("./outbox")
	resolveAddress := func(ctx context.Context, userID string) (string, error) {
		return userID + "@example.com", nil // look the address up in your user store
	}

	engine := notifications.NewEngine(
		notifications.NewPGStorage(pool),
		notifications.NewPGPolicyStore(pool),
		notifications.NewPGPreferenceStore(pool),
		notifications.NewRedisTokenRegistry(redisClient),
		notifications.NewDispatcher(gateway,
			append(notifyCfg.DispatcherOptions(), notifications.WithDispatcherLogger(slogger))...),
		append(notifyCfg.EngineOptions(),
			notifications.WithEngineLogger(slogger),
			notifications.WithEmailDeliverer(notifications.NewEmailDeliverer(sender, resolveAddress)),
		)...,
	)

	_ = engine
}

// Example_mongoStorage swaps the record store for MongoDB; the rest of the
// engine wiring is unchanged.
func Example_mongoStorage() {
	ctx := context.Background()

	var mongoCfg mongo.Config
	config.MustLoad(&mongoCfg)

	db, err := mongo.ConnectDatabase(ctx, mongoCfg, "notifications")
	if err != nil {
		log.Fatal(err)
	}

	storage := notifications.NewMongoStorage(db, "notifications")
	if err := storage.EnsureIndexes(ctx); err != nil {
		log.Fatal(err)
	}

	var gateway notifications.Gateway
	engine := notifications.NewEngine(
		storage,
		notifications.NewMemoryPolicyStore(),
		notifications.NewMemoryPreferenceStore(),
		notifications.NewMemoryTokenRegistry(),
		notifications.NewDispatcher(gateway),
	)

	_ = engine
}
