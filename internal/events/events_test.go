package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishJSONDeliversToSubscribers(t *testing.T) {
	bus := NewEventBus()

	var received []*Event
	bus.Subscribe(EventBookingCreated, func(event *Event) error {
		received = append(received, event)
		return nil
	})

	payload := BookingEventPayload{
		BookingID:       "b-1",
		ResourceID:      "dr-adams",
		SubjectID:       "patient-1",
		Start:           time.Date(2026, 9, 14, 9, 0, 0, 0, time.Local),
		DurationMinutes: 30,
		Kind:            "checkup",
		Status:          "SCHEDULED",
	}
	require.NoError(t, bus.PublishJSON(EventBookingCreated, payload))

	require.Len(t, received, 1)
	assert.Equal(t, EventBookingCreated, received[0].Type)
	assert.False(t, received[0].CreatedAt.IsZero())

	var decoded BookingEventPayload
	require.NoError(t, json.Unmarshal(received[0].Payload, &decoded))
	assert.Equal(t, payload.BookingID, decoded.BookingID)
	assert.Equal(t, payload.DurationMinutes, decoded.DurationMinutes)
}

func TestPublishOnlyMatchingType(t *testing.T) {
	bus := NewEventBus()

	var created, cancelled int
	bus.Subscribe(EventBookingCreated, func(*Event) error {
		created++
		return nil
	})
	bus.Subscribe(EventBookingCancelled, func(*Event) error {
		cancelled++
		return nil
	})

	require.NoError(t, bus.PublishJSON(EventBookingCancelled, BookingEventPayload{BookingID: "b-1"}))

	assert.Equal(t, 0, created)
	assert.Equal(t, 1, cancelled)
}

func TestPublishContinuesPastHandlerError(t *testing.T) {
	bus := NewEventBus()

	var secondCalled bool
	bus.Subscribe(EventBookingConfirmed, func(*Event) error {
		return errors.New("handler failure")
	})
	bus.Subscribe(EventBookingConfirmed, func(*Event) error {
		secondCalled = true
		return nil
	})

	require.NoError(t, bus.PublishJSON(EventBookingConfirmed, BookingEventPayload{BookingID: "b-1"}))
	assert.True(t, secondCalled)
}

func TestNilBusIsSafe(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventBookingCreated, BookingEventPayload{BookingID: "b-1"}))
}

func TestPublishWithNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	assert.NoError(t, bus.PublishJSON("unknown_event", struct{}{}))
}
