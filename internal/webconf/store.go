package webconf

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
)

// Store owns the current Settings. Updates come from the dispatcher goroutine;
// HTTP handlers read snapshots.
type Store struct {
	opts   Options
	dirs   EmptyDirs
	logger *slog.Logger

	mu       sync.RWMutex
	settings Settings
	updates  int64
}

// NewStore creates a Store with no directories configured yet. dirs may be nil
// when the filesystem must not be touched.
func NewStore(opts Options, dirs EmptyDirs, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		opts:   opts,
		dirs:   dirs,
		logger: logger,
	}
	if opts.CoverImageName != "" {
		s.settings.CoverImageNames = SplitCoverImageNames(opts.CoverImageName)
	}
	return s
}

// ApplyConfig parses an internal settings message and installs it.
// An incomplete or undecodable message leaves the current settings untouched.
func (s *Store) ApplyConfig(data []byte) error {
	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		return fmt.Errorf("decode settings update: %w", err)
	}
	if !u.complete() {
		return fmt.Errorf("%w: %s", ErrIncompleteUpdate, data)
	}

	next := Settings{
		MusicDirectory:    *u.MusicDirectory,
		PlaylistDirectory: *u.PlaylistDirectory,
		CoverImageNames:   SplitCoverImageNames(*u.CoverImageName),
		FeatLibrary:       *u.FeatLibrary,
		FeatMpdAlbumart:   *u.FeatMpdAlbumart,
	}
	next.RewritePatterns = s.rewritePatterns(next)

	s.mu.Lock()
	s.settings = next
	s.updates++
	s.mu.Unlock()

	s.logger.Debug("settings updated",
		"music_directory", next.MusicDirectory,
		"playlist_directory", next.PlaylistDirectory,
		"rewrite_patterns", next.RewritePatterns.String(),
	)

	if s.opts.Publish && !s.opts.ReadOnly && s.dirs != nil {
		s.manageEmptyDirs(next)
	}
	return nil
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.clone()
}

// Updates returns how many updates have been applied.
func (s *Store) Updates() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates
}

// Options returns the static options.
func (s *Store) Options() Options {
	return s.opts
}

func (s *Store) rewritePatterns(next Settings) Patterns {
	if !s.opts.Publish {
		return nil
	}

	p := Patterns{{Prefix: "/browse/pics", Dir: filepath.Join(s.opts.VarLibDir, "pics")}}
	if s.opts.Smartpls {
		p = append(p, Pattern{Prefix: "/browse/smartplaylists", Dir: filepath.Join(s.opts.VarLibDir, "smartpls")})
	}
	if next.FeatLibrary {
		p = append(p, Pattern{Prefix: "/browse/music", Dir: next.MusicDirectory})
	}
	if next.PlaylistDirectory != "" {
		p = append(p, Pattern{Prefix: "/browse/playlists", Dir: next.PlaylistDirectory})
	}
	return append(p, Pattern{Prefix: "/browse", Dir: filepath.Join(s.opts.VarLibDir, "empty")})
}

// manageEmptyDirs mirrors the enabled mappings as placeholder directories.
// Failures are logged; browsing still works without them.
func (s *Store) manageEmptyDirs(next Settings) {
	want := []struct {
		name    string
		present bool
	}{
		{DirPics, true},
		{DirSmartplaylists, s.opts.Smartpls},
		{DirMusic, next.FeatLibrary},
		{DirPlaylists, next.PlaylistDirectory != ""},
	}

	for _, w := range want {
		if err := s.dirs.Ensure(w.name, w.present); err != nil {
			s.logger.Error("failed to maintain browse placeholder", "dir", w.name, "error", err)
		}
	}
}
