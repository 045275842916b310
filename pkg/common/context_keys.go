package common

type contextKey string

const (
	UserContextKey contextKey = "user_context"
	PenaltyKey     contextKey = "penalty_multiplier"
)
