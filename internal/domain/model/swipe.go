package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/glimmerapp/backend/internal/domain/enums"
)

type Swipe struct {
	ID        int64               `json:"id"`
	ActorID   uuid.UUID           `json:"actor_id"`
	TargetID  uuid.UUID           `json:"target_id"`
	Decision  enums.SwipeDecision `json:"decision"`
	CreatedAt time.Time           `json:"created_at"`
}
