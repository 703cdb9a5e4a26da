package fields

import (
	"time"

	"github.com/google/uuid"
)

// Field is a bookable unit: one physical pitch with exclusive-use intervals.
type Field struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Sport       string    `json:"sport"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
