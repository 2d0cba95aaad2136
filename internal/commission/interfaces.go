package commission

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes the mission counts the quoting rules depend on.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	// CountCompletedMissions returns how many missions the prestataire has
	// already completed, across payment methods.
	CountCompletedMissions(ctx context.Context, prestataireID uuid.UUID) (int64, error)
}
