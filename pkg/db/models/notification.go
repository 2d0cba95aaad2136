package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/prestalink/prestalink-backend/pkg/enums"
)

// Notification is a user-facing message produced by settlement events.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index:ix_notifications_user"`
	Type      enums.NotificationType `gorm:"column:type;type:notification_type;not null"`
	Title     string                 `gorm:"column:title;not null"`
	Body      string                 `gorm:"column:body;not null;default:''"`
	Payload   json.RawMessage        `gorm:"column:payload;type:jsonb"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
}
