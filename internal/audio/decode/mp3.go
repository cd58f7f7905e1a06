package decode

import (
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces 16-bit stereo.
type mp3Decoder struct {
	*mp3.Decoder
	file *os.File
}

func newMP3Decoder(f *os.File) (Decoder, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	return &mp3Decoder{Decoder: dec, file: f}, nil
}

func (d *mp3Decoder) ChannelCount() int { return 2 }
func (d *mp3Decoder) Close() error      { return d.file.Close() }
