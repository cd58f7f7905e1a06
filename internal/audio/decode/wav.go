package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

type wavDecoder struct {
	pcmState
	file       *os.File
	pcmStart   int64
	sampleRate int
	channels   int
	bitDepth   int
	scratch    []byte
}

func newWAVDecoder(f *os.File) (Decoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported WAV bit depth %d", bitDepth)
	}
	if channels <= 0 {
		return nil, errors.New("WAV file declares no channels")
	}

	srcFrame := int64(channels * bitDepth / 8)
	frames := dec.PCMLen() / srcFrame

	pcmStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("locating WAV PCM data: %w", err)
	}

	d := &wavDecoder{
		file:       f,
		pcmStart:   pcmStart,
		sampleRate: int(dec.SampleRate),
		channels:   channels,
		bitDepth:   bitDepth,
	}
	d.total = frames * int64(channels) * 2
	return d, nil
}

func (d *wavDecoder) Read(p []byte) (int, error) {
	if n, ok := d.drain(p); ok {
		return n, nil
	}
	if d.pos >= d.total {
		return 0, io.EOF
	}

	width := d.bitDepth / 8
	samples := len(p) / 2
	if samples == 0 {
		samples = 1
	}
	if remaining := int((d.total - d.pos) / 2); samples > remaining {
		samples = remaining
	}
	if cap(d.scratch) < samples*width {
		d.scratch = make([]byte, samples*width)
	}
	src := d.scratch[:samples*width]
	n, err := io.ReadFull(d.file, src)
	samples = n / width
	if samples == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}

	raw := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		putSample(raw[i*2:], d.sample(src[i*width:]))
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return d.deliver(p, raw), err
}

// sample widens or narrows one source sample to 16 bits.
func (d *wavDecoder) sample(b []byte) int {
	switch d.bitDepth {
	case 8:
		return (int(b[0]) - 128) << 8
	case 16:
		return int(int16(binary.LittleEndian.Uint16(b)))
	case 24:
		s := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
		if s&0x800000 != 0 {
			s |= ^0xFFFFFF
		}
		return int(s >> 8)
	default:
		return int(int32(binary.LittleEndian.Uint32(b)) >> 16)
	}
}

func (d *wavDecoder) Seek(offset int64, whence int) (int64, error) {
	pos, err := d.target(offset, whence, int64(d.channels)*2)
	if err != nil {
		return d.pos, err
	}
	srcPos := pos / 2 * int64(d.bitDepth/8)
	if _, err := d.file.Seek(d.pcmStart+srcPos, io.SeekStart); err != nil {
		return d.pos, err
	}
	d.moved(pos)
	return pos, nil
}

func (d *wavDecoder) Length() int64     { return d.total }
func (d *wavDecoder) SampleRate() int   { return d.sampleRate }
func (d *wavDecoder) ChannelCount() int { return d.channels }
func (d *wavDecoder) Close() error      { return d.file.Close() }
