package captcha

import (
	"time"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty validates a difficulty string supplied by callers.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch Difficulty(s) {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return Difficulty(s), true
	}
	return "", false
}

type State string

const (
	StateIssued    State = "issued"
	StateVerified  State = "verified"
	StateExpired   State = "expired"
	StateExhausted State = "exhausted"
)

// Challenge is one instance of the verification state machine:
// issued -> verified | expired | exhausted. Terminal states never transition.
type Challenge struct {
	ID          string     `json:"id"`
	Difficulty  Difficulty `json:"difficulty"`
	IPAddress   string     `json:"ip_address"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	Verified    bool       `json:"verified"`
}

// State derives the machine state at the given instant.
func (c *Challenge) State(now time.Time) State {
	switch {
	case c.Verified:
		return StateVerified
	case c.Attempts >= c.MaxAttempts:
		return StateExhausted
	case now.After(c.ExpiresAt):
		return StateExpired
	default:
		return StateIssued
	}
}
