package dto

import "github.com/google/uuid"

type SwipeRequest struct {
	TargetID uuid.UUID `json:"target_id"`
	Like     bool      `json:"like"`
}

type SwipeResponse struct {
	OK           bool `json:"ok"`
	MatchCreated bool `json:"match_created"`
}
