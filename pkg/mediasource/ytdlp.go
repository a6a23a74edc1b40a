package mediasource

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	goytdlp "github.com/lrstanley/go-ytdlp"
	ytget "github.com/ytget/ytdlp/v2"
	"go.uber.org/zap"

	"github.com/audioforge/audioforge/pkg/validate"
)

const defaultPlaylistTitle = "Playlist"

// minTitlePrefix is the shortest shared title prefix worth using as a
// playlist title.
const minTitlePrefix = 10

// YTDLP is a Source backed by the yt-dlp tool for metadata, search and audio
// retrieval, with playlist expansion via the native playlist API client.
type YTDLP struct {
	workDir string
	logger  *zap.Logger
}

// Option configures a YTDLP source.
type Option func(*YTDLP)

// WithWorkDir overrides where fetched audio is spooled before transcoding.
// Defaults to the system temp directory.
func WithWorkDir(dir string) Option {
	return func(s *YTDLP) {
		if dir != "" {
			s.workDir = dir
		}
	}
}

// WithLogger attaches a logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *YTDLP) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewYTDLP constructs a yt-dlp backed source.
func NewYTDLP(opts ...Option) *YTDLP {
	s := &YTDLP{
		workDir: os.TempDir(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureTool downloads the yt-dlp binary if it is not already available.
// Call once at startup.
func EnsureTool(ctx context.Context) error {
	if _, err := goytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("install yt-dlp: %w", err)
	}
	return nil
}

// ResolveMetadata fetches metadata without downloading any media.
func (s *YTDLP) ResolveMetadata(ctx context.Context, ref string) (*Metadata, error) {
	dl := goytdlp.New().
		SkipDownload().
		NoPlaylist().
		DumpSingleJSON()

	res, err := dl.Run(ctx, ref)
	if err != nil {
		s.logger.Debug("metadata resolution failed", zap.String("ref", ref), zap.Error(err))
		return nil, ErrUnavailable
	}

	info, err := firstInfo(res)
	if err != nil {
		return nil, ErrUnavailable
	}
	meta := metadataFromInfo(info)
	if meta.PlayableRef == "" {
		meta.PlayableRef = ref
	}
	if meta.Title == "" {
		return nil, ErrUnavailable
	}
	return meta, nil
}

// ResolvePlaylist expands a playlist reference into its ordered items.
func (s *YTDLP) ResolvePlaylist(ctx context.Context, ref string) (*Playlist, error) {
	playlistID := validate.PlaylistID(ref)
	if playlistID == "" {
		return nil, ErrUnavailable
	}

	client := ytget.New()
	entries, err := client.GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		s.logger.Debug("playlist resolution failed", zap.String("ref", ref), zap.Error(err))
		return nil, ErrUnavailable
	}

	items := make([]Item, 0, len(entries))
	titles := make([]string, 0, len(entries))
	for _, entry := range entries {
		items = append(items, Item{
			Title: entry.Title,
			Ref:   fmt.Sprintf("https://www.youtube.com/watch?v=%s", entry.VideoID),
		})
		titles = append(titles, entry.Title)
	}

	return &Playlist{
		Title: playlistTitle(titles),
		Items: items,
	}, nil
}

// OpenStream fetches the best available audio for a playable reference and
// returns it as a readable stream. The bytes are spooled to a private temp
// directory that is removed when the stream is closed.
func (s *YTDLP) OpenStream(ctx context.Context, playableRef string) (io.ReadCloser, error) {
	dir, err := os.MkdirTemp(s.workDir, "fetch_")
	if err != nil {
		return nil, fmt.Errorf("create fetch dir: %w", err)
	}

	dl := goytdlp.New().
		Format("bestaudio/best").
		NoPlaylist().
		ForceOverwrites().
		RestrictFilenames().
		Output(filepath.Join(dir, "audio.%(ext)s"))

	if _, err := dl.Run(ctx, playableRef); err != nil {
		_ = os.RemoveAll(dir)
		s.logger.Debug("audio fetch failed", zap.String("ref", playableRef), zap.Error(err))
		return nil, ErrUnavailable
	}

	path, err := singleFile(dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, ErrUnavailable
	}

	f, err := os.Open(path)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("open fetched audio: %w", err)
	}
	return &spooledStream{File: f, dir: dir}, nil
}

// Search resolves the best playable match for a free-text query.
func (s *YTDLP) Search(ctx context.Context, query string) (*Metadata, error) {
	dl := goytdlp.New().
		SkipDownload().
		DumpSingleJSON()

	res, err := dl.Run(ctx, "ytsearch1:"+strings.TrimSpace(query))
	if err != nil {
		s.logger.Debug("search failed", zap.String("query", query), zap.Error(err))
		return nil, ErrUnavailable
	}

	info, err := firstInfo(res)
	if err != nil {
		return nil, ErrUnavailable
	}
	// A search result is a one-entry playlist; unwrap it.
	if len(info.Entries) > 0 {
		info = info.Entries[0]
	}
	meta := metadataFromInfo(info)
	if meta.Title == "" || meta.PlayableRef == "" {
		return nil, ErrUnavailable
	}
	return meta, nil
}

// spooledStream is an open file whose parent spool directory is deleted on
// Close.
type spooledStream struct {
	*os.File
	dir string
}

func (s *spooledStream) Close() error {
	err := s.File.Close()
	_ = os.RemoveAll(s.dir)
	return err
}

func firstInfo(res *goytdlp.Result) (*goytdlp.ExtractedInfo, error) {
	infos, err := res.GetExtractedInfo()
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("no media info in result")
	}
	return infos[0], nil
}

func metadataFromInfo(info *goytdlp.ExtractedInfo) *Metadata {
	meta := &Metadata{}
	if info.Title != nil {
		meta.Title = *info.Title
	}
	if info.Duration != nil {
		meta.Duration = time.Duration(*info.Duration * float64(time.Second))
	}
	if info.Thumbnail != nil {
		meta.Thumbnail = *info.Thumbnail
	}
	if info.Uploader != nil {
		meta.Author = *info.Uploader
	}
	if info.WebpageURL != nil {
		meta.PlayableRef = *info.WebpageURL
	}
	return meta
}

func singleFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("no file produced in %s", dir)
}

// playlistTitle derives a human-friendly playlist title from its item
// titles: the shared prefix when long enough, otherwise a generic fallback.
func playlistTitle(titles []string) string {
	if len(titles) == 0 {
		return defaultPlaylistTitle
	}
	prefix := titles[0]
	for _, title := range titles[1:] {
		for !strings.HasPrefix(title, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return defaultPlaylistTitle
			}
		}
	}
	prefix = strings.Trim(prefix, " -–|:")
	if len(prefix) < minTitlePrefix {
		return defaultPlaylistTitle
	}
	return prefix + " " + defaultPlaylistTitle
}

var _ Source = (*YTDLP)(nil)
