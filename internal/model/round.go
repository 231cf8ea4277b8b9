package model

import "time"

// Round is one song-guessing interval. StartedAt is server time and is the moment
// the round goes live; Guesses and WinnerID change while it is active.
type Round struct {
	ID          string    `json:"id"`
	RoundNumber int       `json:"roundNumber"`
	Song        Song      `json:"song"`
	StartedAt   time.Time `json:"startedAt"`
	Hash        string    `json:"hash"`
	Guesses     []Guess   `json:"guesses"`
	WinnerID    string    `json:"winnerId,omitempty"`
}

// Guess is a player's single attempt in a round.
type Guess struct {
	UserID    string    `json:"userId"`
	Guess     string    `json:"guess"`
	IsCorrect bool      `json:"isCorrect"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// GuessBy returns the user's guess in this round, if any.
func (r *Round) GuessBy(userID string) (Guess, bool) {
	for _, g := range r.Guesses {
		if g.UserID == userID {
			return g, true
		}
	}
	return Guess{}, false
}

// EndsAt is when the song stops playing for a round of the given length.
func (r *Round) EndsAt(timePerSong int) time.Time {
	return r.StartedAt.Add(time.Duration(timePerSong) * time.Second)
}
