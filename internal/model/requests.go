package model

// CreateRoomRequest opens a room; omitted settings use the server defaults.
type CreateRoomRequest struct {
	Settings *RoomSettings `json:"settings,omitempty"`
}

type AddSongRequest struct {
	Title      string `json:"title" validate:"required,max=200"`
	Artist     string `json:"artist" validate:"max=200"`
	AlbumArt   string `json:"albumArt" validate:"omitempty,url"`
	PreviewURL string `json:"previewUrl" validate:"omitempty,url"`
	SourceID   string `json:"sourceId" validate:"required,max=64"`
	SourceType string `json:"sourceType" validate:"max=32"`
}

// Track converts the request to the catalog shape the core stores.
func (r AddSongRequest) Track() CatalogTrack {
	return CatalogTrack{
		Title:      r.Title,
		Artist:     r.Artist,
		AlbumArt:   r.AlbumArt,
		PreviewURL: r.PreviewURL,
		SourceID:   r.SourceID,
		SourceType: r.SourceType,
	}
}

type GuessRequest struct {
	Guess string `json:"guess" validate:"required,max=200"`
}

type MessageRequest struct {
	Content string `json:"content" validate:"required,max=500"`
}

// GuessResult is the private feedback returned to the guesser.
type GuessResult struct {
	Accepted    bool    `json:"accepted"`
	Correct     bool    `json:"correct"`
	Close       bool    `json:"close"`
	Duplicate   bool    `json:"duplicate"`
	Winner      bool    `json:"winner"`
	Score       float64 `json:"score"`
	RoundNumber int     `json:"roundNumber"`
	Rank        int     `json:"rank,omitempty"` // guesser's standing after a correct guess
}
