package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"guessthesong/internal/apperr"
	"guessthesong/internal/model"
)

const sourceDeezer = "deezer"

// CatalogClient searches the public Deezer track catalog.
type CatalogClient struct {
	baseURL    string
	limit      int
	httpClient *http.Client
	log        *zap.Logger
}

func NewCatalogClient(baseURL string, timeout time.Duration, limit int, log *zap.Logger) *CatalogClient {
	if limit <= 0 {
		limit = 10
	}
	return &CatalogClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		limit:   limit,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.Named("catalog"),
	}
}

type deezerSearchResponse struct {
	Data  []deezerTrack `json:"data"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type deezerTrack struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Preview string `json:"preview"`
	Artist  struct {
		Name string `json:"name"`
	} `json:"artist"`
	Album struct {
		CoverMedium string `json:"cover_medium"`
	} `json:"album"`
}

// Search resolves a free-text query to playable tracks. Tracks without a
// preview are skipped since they cannot be played in a round.
func (c *CatalogClient) Search(ctx context.Context, query string) ([]model.CatalogTrack, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(c.limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("catalog request failed", zap.Error(err))
		return nil, apperr.Wrap(apperr.KindUnavailable, "catalog unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.Unavailable(fmt.Sprintf("catalog returned status %d", resp.StatusCode))
	}

	var body deezerSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "catalog returned malformed body", err)
	}
	if body.Error != nil {
		return nil, apperr.Unavailable("catalog error: " + body.Error.Message)
	}

	tracks := make([]model.CatalogTrack, 0, len(body.Data))
	for _, t := range body.Data {
		if t.Preview == "" {
			continue
		}
		tracks = append(tracks, model.CatalogTrack{
			Title:      t.Title,
			Artist:     t.Artist.Name,
			AlbumArt:   t.Album.CoverMedium,
			PreviewURL: t.Preview,
			SourceID:   strconv.FormatInt(t.ID, 10),
			SourceType: sourceDeezer,
		})
	}
	return tracks, nil
}
