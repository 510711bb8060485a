package handlers

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"careconnect-server/internal/models"
	"careconnect-server/internal/realtime"
)

// notifier persists notifications and fans them out over the realtime hub.
// Notification creation is a side effect of a committed transition; when it
// fails the primary mutation has already committed, so failures here are
// logged and surfaced as warnings rather than rolled back.
type notifier struct {
	db  *gorm.DB
	hub realtime.Publisher
	log *logrus.Logger
}

// send writes the notification inside tx (or the base DB when tx is nil)
// and publishes it to the recipient's notification topic.
func (n *notifier) send(tx *gorm.DB, notification models.Notification) error {
	db := n.db
	if tx != nil {
		db = tx
	}
	if err := db.Create(&notification).Error; err != nil {
		n.log.WithFields(logrus.Fields{
			"recipient": notification.RecipientID,
			"type":      notification.Type,
		}).WithError(err).Error("failed to create notification")
		return err
	}

	n.publish(realtime.UserNotificationsTopic(notification.RecipientID), realtime.EventCreated, "Notification", notification.ID, notification)
	return nil
}

// publish marshals payload and broadcasts it; marshal failures only drop
// the event body, never the event.
func (n *notifier) publish(topic, eventType, resourceType, resourceID string, payload interface{}) {
	if n.hub == nil {
		return
	}
	var data json.RawMessage
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			data = b
		}
	}
	n.hub.Publish(realtime.Event{
		Type:         eventType,
		Topic:        topic,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Timestamp:    time.Now(),
		Data:         data,
	})
}
