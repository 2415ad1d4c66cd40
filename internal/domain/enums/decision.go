package enums

import (
	"fmt"
	"strings"
)

type SwipeDecision string

const (
	DecisionLike SwipeDecision = "like"
	DecisionPass SwipeDecision = "pass"
)

func ParseSwipeDecision(value string) (SwipeDecision, error) {
	switch SwipeDecision(strings.ToLower(strings.TrimSpace(value))) {
	case DecisionLike:
		return DecisionLike, nil
	case DecisionPass:
		return DecisionPass, nil
	default:
		return "", fmt.Errorf("unknown swipe decision %q", value)
	}
}

// DecisionFromLike maps the wire-level boolean onto the decision enum.
func DecisionFromLike(like bool) SwipeDecision {
	if like {
		return DecisionLike
	}
	return DecisionPass
}
