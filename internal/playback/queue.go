package playback

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/guidoenr/harmonic/internal/audio/decode"
)

// Collect expands files, directories and .m3u/.m3u8 playlists into a list
// of decodable tracks. Directories are walked recursively in lexical order.
func Collect(paths []string) ([]string, error) {
	var tracks []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		switch {
		case info.IsDir():
			found, err := walkDir(p)
			if err != nil {
				return nil, err
			}
			tracks = append(tracks, found...)
		case isPlaylist(p):
			entries, err := readPlaylist(p)
			if err != nil {
				return nil, err
			}
			tracks = append(tracks, entries...)
		case decode.Supported(p):
			tracks = append(tracks, p)
		default:
			return nil, fmt.Errorf("%s: %w", p, decode.ErrUnsupportedFormat)
		}
	}
	return tracks, nil
}

func walkDir(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && decode.Supported(path) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(out)
	return out, nil
}

func isPlaylist(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m3u", ".m3u8":
		return true
	}
	return false
}

// readPlaylist keeps the entries that exist and can be decoded. Relative
// entries resolve against the playlist's directory.
func readPlaylist(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	base := filepath.Dir(path)
	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		if info, err := os.Stat(line); err != nil || info.IsDir() || !decode.Supported(line) {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}
	return out, nil
}

func trackName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
