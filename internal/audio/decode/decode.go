// Package decode turns local audio files into 16-bit little-endian PCM
// streams that the player can hand to the output device.
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned by Open for extensions without a decoder.
var ErrUnsupportedFormat = errors.New("decode: unsupported format")

// Decoder is an interleaved signed 16-bit LE PCM stream. Offsets and Length
// are measured in output bytes.
type Decoder interface {
	io.ReadSeeker
	io.Closer
	Length() int64
	SampleRate() int
	ChannelCount() int
}

var extensions = map[string]func(*os.File) (Decoder, error){
	".mp3":  newMP3Decoder,
	".wav":  newWAVDecoder,
	".flac": newFLACDecoder,
	".ogg":  newOGGDecoder,
}

// Supported reports whether path has an extension Open can decode.
func Supported(path string) bool {
	_, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions lists the decodable extensions.
func Extensions() []string {
	return []string{".flac", ".mp3", ".ogg", ".wav"}
}

// Open picks a decoder by file extension. The returned Decoder owns the file.
func Open(path string) (Decoder, error) {
	ext := strings.ToLower(filepath.Ext(path))
	newDecoder, ok := extensions[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	dec, err := newDecoder(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	return dec, nil
}

// pcmState tracks the output position and the converted bytes a Read could
// not hand out yet.
type pcmState struct {
	pending []byte
	pos     int64
	total   int64
}

func (s *pcmState) drain(p []byte) (int, bool) {
	if len(s.pending) == 0 {
		return 0, false
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	s.pos += int64(n)
	return n, true
}

// deliver copies raw into p and keeps the remainder for the next Read.
func (s *pcmState) deliver(p, raw []byte) int {
	n := copy(p, raw)
	if n < len(raw) {
		s.pending = raw[n:]
	}
	s.pos += int64(n)
	return n
}

// target resolves a Seek request to a byte offset aligned to frameSize.
func (s *pcmState) target(offset int64, whence int, frameSize int64) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = s.pos + offset
	case io.SeekEnd:
		pos = s.total + offset
	default:
		return s.pos, fmt.Errorf("decode: invalid whence %d", whence)
	}
	if pos < 0 {
		pos = 0
	}
	if pos > s.total {
		pos = s.total
	}
	if frameSize > 0 {
		pos -= pos % frameSize
	}
	return pos, nil
}

func (s *pcmState) moved(pos int64) {
	s.pending = nil
	s.pos = pos
}

func putSample(dst []byte, sample int) {
	if sample > 32767 {
		sample = 32767
	} else if sample < -32768 {
		sample = -32768
	}
	v := uint16(int16(sample))
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
}
