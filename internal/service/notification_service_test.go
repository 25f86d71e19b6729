package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/field-ticket-service/internal/config"
	"github.com/spec-kit/field-ticket-service/internal/events"
	"github.com/spec-kit/field-ticket-service/internal/observability"
)

type recordingPublisher struct {
	channel  string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	p.channel = channel
	p.payloads = append(p.payloads, payload)
	return p.err
}

func TestNotificationServicePublishesEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	pub := &recordingPublisher{}
	n := NewNotificationService(dispatcher, pub, zap.NewNop(), observability.NewMetrics("test"), config.NotificationConfig{RedisChannel: "tickets.events"})
	n.RegisterHandlers()

	ev := events.New(events.EventTicketCreated, "t-1", nil, time.Now(), events.TicketCreatedPayload{TicketNumber: "T-001"})
	require.NoError(t, dispatcher.Publish(context.Background(), ev))

	assert.Equal(t, "tickets.events", pub.channel)
	require.Len(t, pub.payloads, 1)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(pub.payloads[0], &decoded))
	assert.Equal(t, "ticket_created", decoded["type"])
	assert.Equal(t, "t-1", decoded["ticket_id"])
}

func TestNotificationServiceReportsPublishFailure(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	pub := &recordingPublisher{err: errors.New("redis down")}
	n := NewNotificationService(dispatcher, pub, nil, nil, config.NotificationConfig{RedisChannel: "c"})
	n.RegisterHandlers()

	err := dispatcher.Publish(context.Background(), events.New(events.EventTicketDeleted, "t-1", nil, time.Now(), nil))
	assert.ErrorContains(t, err, "redis down")
}

func TestNotificationServiceWithoutPublisher(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	NewNotificationService(dispatcher, nil, nil, nil, config.NotificationConfig{}).RegisterHandlers()

	assert.NoError(t, dispatcher.Publish(context.Background(), events.New(events.EventActivityAppended, "t-1", nil, time.Now(), nil)))
}
