package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/catalog/internal/config"
	"github.com/Additional-Code/catalog/internal/messaging"
)

func TestOrderCreatedHandler(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	cfg := config.Config{Messaging: config.Messaging{Kafka: config.Kafka{Topic: "catalog.orders"}}}

	reg := NewOrderCreatedHandler(zap.New(core), cfg)
	assert.Equal(t, "catalog.orders", reg.Topic)

	err := reg.Handler(context.Background(), messaging.Message{
		Topic: "catalog.orders",
		Value: []byte(`{"id":7,"product_id":3,"quantity":2,"order_date":"2023-01-15","customer_name":"J. Doe","run_id":"r1"}`),
	})
	require.NoError(t, err)

	entries := logs.FilterMessage("order created event processed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(7), fields["id"])
	assert.Equal(t, "2023-01-15", fields["order_date"])
	assert.Equal(t, "r1", fields["run_id"])
}

func TestOrderCreatedHandlerRejectsGarbage(t *testing.T) {
	reg := NewOrderCreatedHandler(zap.NewNop(), config.Config{})
	err := reg.Handler(context.Background(), messaging.Message{Value: []byte("{")})
	assert.Error(t, err)
}
