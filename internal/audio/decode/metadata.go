package decode

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
)

// Metadata describes a track for status lines and the web page.
type Metadata struct {
	Title  string `json:"title"`
	Artist string `json:"artist,omitempty"`
	Album  string `json:"album,omitempty"`
}

// String renders "Artist - Title", or just the title.
func (m Metadata) String() string {
	if m.Artist == "" {
		return m.Title
	}
	return m.Artist + " - " + m.Title
}

// ReadMetadata reads ID3v2 tags, falling back to the file name when the
// file has no usable title.
func ReadMetadata(path string) Metadata {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err == nil {
		defer tag.Close()
		m := Metadata{
			Title:  strings.TrimSpace(tag.Title()),
			Artist: strings.TrimSpace(tag.Artist()),
			Album:  strings.TrimSpace(tag.Album()),
		}
		if m.Title != "" {
			return m
		}
	}
	base := filepath.Base(path)
	return Metadata{Title: strings.TrimSuffix(base, filepath.Ext(base))}
}

// Duration converts a decoder's byte length into playing time.
func Duration(d Decoder) time.Duration {
	perSecond := int64(d.SampleRate()) * int64(d.ChannelCount()) * 2
	if perSecond <= 0 {
		return 0
	}
	return time.Duration(float64(d.Length()) / float64(perSecond) * float64(time.Second))
}
