package decode

import (
	"errors"
	"fmt"
	"os"

	"github.com/mewkiz/flac"
)

type flacDecoder struct {
	pcmState
	stream     *flac.Stream
	file       *os.File
	sampleRate int
	channels   int
	bps        int
}

func newFLACDecoder(f *os.File) (Decoder, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}
	info := stream.Info
	d := &flacDecoder{
		stream:     stream,
		file:       f,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bps:        int(info.BitsPerSample),
	}
	d.total = int64(info.NSamples) * int64(d.channels) * 2
	return d, nil
}

func (d *flacDecoder) Read(p []byte) (int, error) {
	if n, ok := d.drain(p); ok {
		return n, nil
	}

	frame, err := d.stream.ParseNext()
	if err != nil {
		return 0, err
	}

	n := int(frame.Subframes[0].NSamples)
	raw := make([]byte, n*d.channels*2)
	shift := d.bps - 16
	for i := 0; i < n; i++ {
		for ch := 0; ch < d.channels; ch++ {
			s := int(frame.Subframes[ch].Samples[i])
			if shift > 0 {
				s >>= shift
			} else if shift < 0 {
				s <<= -shift
			}
			putSample(raw[(i*d.channels+ch)*2:], s)
		}
	}
	return d.deliver(p, raw), nil
}

func (d *flacDecoder) Seek(offset int64, whence int) (int64, error) {
	frameSize := int64(d.channels) * 2
	pos, err := d.target(offset, whence, frameSize)
	if err != nil {
		return d.pos, err
	}
	if _, err := d.stream.Seek(uint64(pos / frameSize)); err != nil {
		return d.pos, err
	}
	d.moved(pos)
	return pos, nil
}

func (d *flacDecoder) Length() int64     { return d.total }
func (d *flacDecoder) SampleRate() int   { return d.sampleRate }
func (d *flacDecoder) ChannelCount() int { return d.channels }

func (d *flacDecoder) Close() error {
	_ = d.stream.Close()
	if err := d.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}
