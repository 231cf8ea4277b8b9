package model

// Song is a contributed track. SourceID is unique within a room.
type Song struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	AlbumArt   string `json:"albumArt"`
	SourceID   string `json:"sourceId"`
	SourceType string `json:"sourceType"`
	PreviewURL string `json:"previewUrl"`
	UserID     string `json:"userId"`
	IsPlayed   bool   `json:"isPlayed"`
}

// CatalogTrack is what the catalog provider returns for a search hit.
type CatalogTrack struct {
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	AlbumArt   string `json:"albumArt"`
	PreviewURL string `json:"previewUrl"`
	SourceID   string `json:"sourceId"`
	SourceType string `json:"sourceType"`
}
