package webconf

import (
	"errors"
	"strings"
)

// ErrIncompleteUpdate is returned when an update lacks one of its required fields.
var ErrIncompleteUpdate = errors.New("incomplete settings update")

// Options are the static web settings, read once from the config file.
type Options struct {
	VarLibDir      string // State directory holding pics, smartpls and empty
	Publish        bool   // Serve /browse
	Smartpls       bool   // Smart playlists enabled
	ReadOnly       bool   // Never touch the filesystem
	CoverImageName string // Initial comma separated cover file names
}

// Update is the internal settings message. All fields are required.
type Update struct {
	PlaylistDirectory *string `json:"playlistDirectory"`
	MusicDirectory    *string `json:"musicDirectory"`
	CoverImageName    *string `json:"coverimageName"`
	FeatLibrary       *bool   `json:"featLibrary"`
	FeatMpdAlbumart   *bool   `json:"featMpdAlbumart"`
}

func (u Update) complete() bool {
	return u.PlaylistDirectory != nil &&
		u.MusicDirectory != nil &&
		u.CoverImageName != nil &&
		u.FeatLibrary != nil &&
		u.FeatMpdAlbumart != nil
}

// Pattern maps a URL prefix onto a directory.
type Pattern struct {
	Prefix string
	Dir    string
}

// Patterns is an ordered rewrite table.
type Patterns []Pattern

// String renders the table as "prefix=dir,prefix=dir".
func (p Patterns) String() string {
	parts := make([]string, 0, len(p))
	for _, pat := range p {
		parts = append(parts, pat.Prefix+"="+pat.Dir)
	}
	return strings.Join(parts, ",")
}

// Resolve finds the longest prefix matching urlPath on a path segment boundary.
// rest is the remainder of urlPath, always starting with "/".
func (p Patterns) Resolve(urlPath string) (dir, rest string, ok bool) {
	best := -1
	for i, pat := range p {
		if !hasSegmentPrefix(urlPath, pat.Prefix) {
			continue
		}
		if best < 0 || len(pat.Prefix) > len(p[best].Prefix) {
			best = i
		}
	}
	if best < 0 {
		return "", "", false
	}

	rest = strings.TrimPrefix(urlPath, p[best].Prefix)
	if rest == "" {
		rest = "/"
	}
	return p[best].Dir, rest, true
}

func hasSegmentPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// Settings is the network-side view of the application settings.
type Settings struct {
	MusicDirectory    string
	PlaylistDirectory string
	CoverImageNames   []string
	FeatLibrary       bool
	FeatMpdAlbumart   bool
	RewritePatterns   Patterns
}

func (s Settings) clone() Settings {
	s.CoverImageNames = append([]string(nil), s.CoverImageNames...)
	s.RewritePatterns = append(Patterns(nil), s.RewritePatterns...)
	return s
}

// SplitCoverImageNames splits a comma separated list, trimming spaces around each name.
func SplitCoverImageNames(s string) []string {
	names := strings.Split(s, ",")
	for i, n := range names {
		names[i] = strings.Trim(n, " ")
	}
	return names
}
