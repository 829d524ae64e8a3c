package platform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ytget/ytdlp/v2"

	"github.com/AnMaster15/mashupp/internal/model"
)

// Timeout constants
const (
	DefaultParseTimeout = 60 * time.Second
)

// URL parameters and separators
const (
	PlaylistParam  = "list="
	ParamSeparator = "&"
)

// URL templates
const (
	YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// playlistEntry is the subset of a playlist item the pipeline needs
type playlistEntry struct {
	VideoID string
	Title   string
}

// playlistLister fetches every item of a playlist
type playlistLister func(ctx context.Context, playlistID string) ([]playlistEntry, error)

// PlaylistSource produces candidates from a fixed YouTube playlist instead of
// a search query
type PlaylistSource struct {
	playlistID string
	timeout    time.Duration
	list       playlistLister
	logger     *slog.Logger
}

// NewPlaylistSource creates a source for a playlist ID or playlist URL
func NewPlaylistSource(playlist string, logger *slog.Logger) *PlaylistSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlaylistSource{
		playlistID: ExtractPlaylistID(playlist),
		timeout:    DefaultParseTimeout,
		list:       listWithLibrary,
		logger:     logger,
	}
}

// SetTimeout sets the timeout for listing operations
func (p *PlaylistSource) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// Search returns up to maxResults playlist entries in playlist order. The
// query is ignored: the playlist is the query.
func (p *PlaylistSource) Search(ctx context.Context, _ string, maxResults int) ([]model.Candidate, error) {
	if p.playlistID == "" {
		return []model.Candidate{}, fmt.Errorf("%w: playlist ID is empty", model.ErrSearch)
	}
	if maxResults <= 0 {
		return []model.Candidate{}, nil
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	entries, err := p.list(ctx, p.playlistID)
	if err != nil {
		return []model.Candidate{}, fmt.Errorf("%w: failed to get playlist items: %v", model.ErrSearch, err)
	}

	candidates := make([]model.Candidate, 0, min(len(entries), maxResults))
	for _, e := range entries {
		if len(candidates) == maxResults {
			break
		}
		if e.VideoID == "" {
			continue
		}
		candidates = append(candidates, model.Candidate{
			Title: e.Title,
			URL:   fmt.Sprintf(YouTubeVideoURLTemplate, e.VideoID),
		})
	}

	p.logger.Debug("playlist listed",
		slog.String("playlist", p.playlistID),
		slog.Int("items", len(entries)),
		slog.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

// ExtractPlaylistID returns the playlist ID from a playlist URL, or the input
// itself when it is already a bare ID
func ExtractPlaylistID(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, PlaylistParam) {
		if strings.ContainsAny(raw, "/?=&") {
			return ""
		}
		return raw
	}

	parts := strings.SplitN(raw, PlaylistParam, 2)
	playlistPart := parts[1]
	if strings.Contains(playlistPart, ParamSeparator) {
		playlistPart = strings.Split(playlistPart, ParamSeparator)[0]
	}
	return playlistPart
}

// listWithLibrary lists playlist items with the ytdlp library
func listWithLibrary(ctx context.Context, playlistID string) ([]playlistEntry, error) {
	d := ytdlp.New()
	items, err := d.GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, err
	}

	entries := make([]playlistEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, playlistEntry{VideoID: it.VideoID, Title: it.Title})
	}
	return entries, nil
}
