package realtime

import (
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careconnect-server/internal/models"
)

type stubConn struct{}

func (stubConn) ReadMessage() (int, []byte, error)  { return 0, nil, nil }
func (stubConn) WriteMessage(int, []byte) error     { return nil }
func (stubConn) Close() error                       { return nil }

func newTestHub() *Hub {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewHub(log, nil)
}

// fakeLoader serves canned snapshot payloads keyed by topic.
type fakeLoader struct {
	payloads map[string]json.RawMessage
	err      error
}

func (f fakeLoader) Snapshot(topic string) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.payloads[topic], nil
}

func drainOne(t *testing.T, client *Client) Event {
	t.Helper()
	select {
	case raw := <-client.Send:
		var ev Event
		require.NoError(t, json.Unmarshal(raw, &ev))
		return ev
	default:
		t.Fatal("expected a queued event")
		return Event{}
	}
}

func TestRegisterDeliversSnapshotPerTopic(t *testing.T) {
	hub := newTestHub()
	client := NewClient(hub, stubConn{}, "patient-1", models.RolePatient)
	client.Topics = []string{
		UserAppointmentsTopic("patient-1"),
		UserNotificationsTopic("patient-1"),
	}

	hub.Register(client)

	ev := drainOne(t, client)
	assert.Equal(t, EventSnapshot, ev.Type)
	assert.Equal(t, UserAppointmentsTopic("patient-1"), ev.Topic)
	assert.Equal(t, json.RawMessage("[]"), ev.Data)

	ev = drainOne(t, client)
	assert.Equal(t, EventSnapshot, ev.Type)
	assert.Equal(t, UserNotificationsTopic("patient-1"), ev.Topic)
	assert.Equal(t, json.RawMessage("[]"), ev.Data)

	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, hub.TopicCount(UserAppointmentsTopic("patient-1")))
}

func TestSnapshotCarriesLoadedRecords(t *testing.T) {
	topic := UserOrdersTopic("patient-1")
	hub := newTestHub()
	hub.loader = fakeLoader{payloads: map[string]json.RawMessage{
		topic: json.RawMessage(`[{"id":"order-1","status":"pending"}]`),
	}}

	client := NewClient(hub, stubConn{}, "patient-1", models.RolePatient)
	client.Topics = []string{topic}
	hub.Register(client)

	ev := drainOne(t, client)
	assert.Equal(t, EventSnapshot, ev.Type)
	assert.Equal(t, topic, ev.Topic)
	assert.JSONEq(t, `[{"id":"order-1","status":"pending"}]`, string(ev.Data))
}

func TestSnapshotEmptyWhenLoaderHasNoRecords(t *testing.T) {
	hub := newTestHub()
	hub.loader = fakeLoader{payloads: map[string]json.RawMessage{}}

	client := NewClient(hub, stubConn{}, "patient-1", models.RolePatient)
	client.Topics = []string{UserOrdersTopic("patient-1")}
	hub.Register(client)

	ev := drainOne(t, client)
	assert.Equal(t, EventSnapshot, ev.Type)
	assert.Equal(t, json.RawMessage("[]"), ev.Data)
}

func TestSnapshotFallsBackOnLoaderError(t *testing.T) {
	hub := newTestHub()
	hub.loader = fakeLoader{err: assert.AnError}

	client := NewClient(hub, stubConn{}, "patient-1", models.RolePatient)
	client.Topics = []string{UserOrdersTopic("patient-1")}
	hub.Register(client)

	ev := drainOne(t, client)
	assert.Equal(t, EventSnapshot, ev.Type)
	assert.Equal(t, json.RawMessage("[]"), ev.Data)
}

func TestPublishReachesOnlySubscribers(t *testing.T) {
	hub := newTestHub()

	subscriber := NewClient(hub, stubConn{}, "patient-1", models.RolePatient)
	subscriber.Topics = []string{UserOrdersTopic("patient-1")}
	hub.Register(subscriber)
	drainOne(t, subscriber) // snapshot

	bystander := NewClient(hub, stubConn{}, "patient-2", models.RolePatient)
	bystander.Topics = []string{UserOrdersTopic("patient-2")}
	hub.Register(bystander)
	drainOne(t, bystander) // snapshot

	hub.Publish(Event{
		Type:         EventUpdated,
		Topic:        UserOrdersTopic("patient-1"),
		ResourceType: "Order",
		ResourceID:   "order-1",
	})

	ev := drainOne(t, subscriber)
	assert.Equal(t, EventUpdated, ev.Type)
	assert.Equal(t, "order-1", ev.ResourceID)
	assert.False(t, ev.Timestamp.IsZero())

	select {
	case <-bystander.Send:
		t.Fatal("bystander should not receive another account's event")
	default:
	}
}

func TestPublishDeliversInOrder(t *testing.T) {
	hub := newTestHub()
	client := NewClient(hub, stubConn{}, "patient-1", models.RolePatient)
	client.Topics = []string{UserAppointmentsTopic("patient-1")}
	hub.Register(client)
	drainOne(t, client) // snapshot

	for _, id := range []string{"a-1", "a-2", "a-3"} {
		hub.Publish(Event{
			Type:       EventUpdated,
			Topic:      UserAppointmentsTopic("patient-1"),
			ResourceID: id,
		})
	}

	assert.Equal(t, "a-1", drainOne(t, client).ResourceID)
	assert.Equal(t, "a-2", drainOne(t, client).ResourceID)
	assert.Equal(t, "a-3", drainOne(t, client).ResourceID)
}

func TestUnregisterReleasesSubscriptions(t *testing.T) {
	hub := newTestHub()
	client := NewClient(hub, stubConn{}, "patient-1", models.RolePatient)
	client.Topics = []string{UserAppointmentsTopic("patient-1")}
	hub.Register(client)

	hub.Unregister(client)

	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.TopicCount(UserAppointmentsTopic("patient-1")))

	// Send channel is closed, and a second unregister is a no-op.
	_, open := <-client.Send
	for open {
		_, open = <-client.Send
	}
	hub.Unregister(client)
}

func TestSubscribeRejectsUnauthorizedTopics(t *testing.T) {
	hub := newTestHub()
	client := NewClient(hub, stubConn{}, "patient-1", models.RolePatient)
	hub.Register(client)

	hub.Subscribe(client, []string{
		UserOrdersTopic("patient-1"),
		UserOrdersTopic("patient-2"), // someone else's
	})

	assert.Equal(t, []string{UserOrdersTopic("patient-1")}, client.Topics)
	assert.Equal(t, 1, hub.TopicCount(UserOrdersTopic("patient-1")))
	assert.Equal(t, 0, hub.TopicCount(UserOrdersTopic("patient-2")))

	// Only the accepted topic got a snapshot ack.
	ev := drainOne(t, client)
	assert.Equal(t, EventSnapshot, ev.Type)
	assert.Equal(t, UserOrdersTopic("patient-1"), ev.Topic)
	select {
	case <-client.Send:
		t.Fatal("rejected topic should not be acknowledged")
	default:
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	hub := newTestHub()
	client := NewClient(hub, stubConn{}, "patient-1", models.RolePatient)
	client.Topics = []string{UserOrdersTopic("patient-1")}
	hub.Register(client)
	drainOne(t, client) // snapshot

	hub.Unsubscribe(client, []string{UserOrdersTopic("patient-1")})
	hub.Publish(Event{Type: EventUpdated, Topic: UserOrdersTopic("patient-1")})

	assert.Empty(t, client.Topics)
	select {
	case <-client.Send:
		t.Fatal("unsubscribed client should not receive events")
	default:
	}
}

func TestTopicAllowed(t *testing.T) {
	conversation := ConversationTopic(models.ConversationID("patient-1", "doctor-1"))

	tests := []struct {
		name   string
		userID string
		role   models.Role
		topic  string
		want   bool
	}{
		{"own appointments", "patient-1", models.RolePatient, UserAppointmentsTopic("patient-1"), true},
		{"someone else's appointments", "patient-1", models.RolePatient, UserAppointmentsTopic("patient-2"), false},
		{"own notifications", "doctor-1", models.RoleDoctor, UserNotificationsTopic("doctor-1"), true},
		{"own inventory as pharmacy", "pharmacy-1", models.RolePharmacy, PharmacyInventoryTopic("pharmacy-1"), true},
		{"inventory needs pharmacy role", "patient-1", models.RolePatient, PharmacyInventoryTopic("patient-1"), false},
		{"other pharmacy's inventory", "pharmacy-1", models.RolePharmacy, PharmacyInventoryTopic("pharmacy-2"), false},
		{"conversation participant", "patient-1", models.RolePatient, conversation, true},
		{"conversation other participant", "doctor-1", models.RoleDoctor, conversation, true},
		{"conversation outsider", "patient-2", models.RolePatient, conversation, false},
		{"admin watches anything", "admin-1", models.RoleAdmin, UserOrdersTopic("patient-1"), true},
		{"unknown scheme", "patient-1", models.RolePatient, "system/health", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TopicAllowed(tt.userID, tt.role, tt.topic))
		})
	}
}
