package model

import "time"

// NotificationType is the categorical tag assigned to a notification by
// the backend.
type NotificationType string

const (
	NotificationTaskCreated   NotificationType = "task_created"
	NotificationDealWon       NotificationType = "deal_won"
	NotificationLeadConverted NotificationType = "lead_converted"
	NotificationSystem        NotificationType = "system"
)

// EntityType identifies the kind of business object a notification refers to.
type EntityType string

const (
	EntityTask    EntityType = "task"
	EntityDeal    EntityType = "deal"
	EntityContact EntityType = "contact"
	EntityLead    EntityType = "lead"
)

// Notification mirrors a backend-authoritative notification record.
// IsRead only ever transitions false to true on the client.
type Notification struct {
	// ID is the backend's stable identifier for this record.
	ID int64 `json:"id"`

	// Type is the notification category.
	Type NotificationType `json:"type"`

	// Title is the short display heading.
	Title string `json:"title"`

	// Message is the full display text.
	Message string `json:"message"`

	// EntityType and EntityID optionally reference a related business
	// object. Both are present or both are absent.
	EntityType EntityType `json:"entity_type,omitempty"`
	EntityID   int64      `json:"entity_id,omitempty"`

	// IsRead indicates whether the user has seen this notification.
	IsRead bool `json:"is_read"`

	// CreatedAt is when the backend generated this notification.
	CreatedAt time.Time `json:"created_at"`
}
