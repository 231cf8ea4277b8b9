package model

import "time"

// RoomState is the persisted per-room aggregate. Every mutation goes through the
// store's atomic update so exactly one writer touches it at a time.
type RoomState struct {
	Room        Room         `json:"room"`
	Settings    RoomSettings `json:"settings"`
	Players     []Player     `json:"players"`
	Songs       []Song       `json:"songs"` // shuffled into play order when a game starts
	Round       *Round       `json:"round,omitempty"`
	NextRound   *Round       `json:"nextRound,omitempty"`
	IsPlaying   bool         `json:"isPlaying"`
	CountDown   bool         `json:"countDown"`
	TotalRounds int          `json:"totalRounds"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// GameState is the broadcastable snapshot, always derived fresh from a RoomState.
type GameState struct {
	RoomCode       string    `json:"roomCode"`
	Players        []Player  `json:"players"`
	Songs          []Song    `json:"songs"`
	Round          *Round    `json:"round"`
	NextRound      *Round    `json:"nextRound"`
	IsPlaying      bool      `json:"isPlaying"`
	CountDown      bool      `json:"countDown"`
	IsActive       bool      `json:"isActive"`
	HostID         string    `json:"hostId"`
	SongsPerPlayer int       `json:"songsPerPlayer"`
	TimePerSong    int       `json:"timePerSong"`
	TotalRounds    int       `json:"totalRounds"`
	Messages       []Message `json:"messages"`
}

// Phase names the scheduler state a room is in.
type Phase string

const (
	PhaseLobby     Phase = "LOBBY"
	PhaseCountdown Phase = "COUNTDOWN"
	PhasePlaying   Phase = "PLAYING"
	PhaseFinished  Phase = "FINISHED"
)

// Phase derives the state-machine phase from the persisted flags.
func (s *RoomState) Phase() Phase {
	switch {
	case s.CountDown:
		return PhaseCountdown
	case s.IsPlaying:
		return PhasePlaying
	case s.TotalRounds > 0:
		return PhaseFinished
	default:
		return PhaseLobby
	}
}

// InLobby reports whether no game has been started yet.
func (s *RoomState) InLobby() bool {
	return s.Phase() == PhaseLobby
}

// InProgress reports whether the scheduler still owns this room.
func (s *RoomState) InProgress() bool {
	p := s.Phase()
	return p == PhaseCountdown || p == PhasePlaying
}

func (s *RoomState) HostID() string {
	for _, p := range s.Players {
		if p.IsHost() {
			return p.User.ID
		}
	}
	return ""
}

func (s *RoomState) PlayerIndex(userID string) int {
	for i, p := range s.Players {
		if p.User.ID == userID {
			return i
		}
	}
	return -1
}

func (s *RoomState) IsMember(userID string) bool {
	return s.PlayerIndex(userID) >= 0
}

// RemovePlayer drops the user and reports whether anything changed.
func (s *RoomState) RemovePlayer(userID string) (Player, bool) {
	i := s.PlayerIndex(userID)
	if i < 0 {
		return Player{}, false
	}
	p := s.Players[i]
	s.Players = append(s.Players[:i], s.Players[i+1:]...)
	return p, true
}

func (s *RoomState) HasSource(sourceID string) bool {
	for _, song := range s.Songs {
		if song.SourceID == sourceID {
			return true
		}
	}
	return false
}

func (s *RoomState) SongCountBy(userID string) int {
	n := 0
	for _, song := range s.Songs {
		if song.UserID == userID {
			n++
		}
	}
	return n
}

// Snapshot projects the state into the wire GameState.
func (s *RoomState) Snapshot(messages []Message) GameState {
	players := s.Players
	if players == nil {
		players = []Player{}
	}
	songs := s.Songs
	if songs == nil {
		songs = []Song{}
	}
	if messages == nil {
		messages = []Message{}
	}
	return GameState{
		RoomCode:       s.Room.Code,
		Players:        players,
		Songs:          songs,
		Round:          s.Round,
		NextRound:      s.NextRound,
		IsPlaying:      s.IsPlaying,
		CountDown:      s.CountDown,
		IsActive:       s.Room.IsActive,
		HostID:         s.HostID(),
		SongsPerPlayer: s.Settings.SongsPerPlayer,
		TimePerSong:    s.Settings.TimePerSong,
		TotalRounds:    s.TotalRounds,
		Messages:       messages,
	}
}
