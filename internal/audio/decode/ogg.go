package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

type oggDecoder struct {
	pcmState
	reader  *oggvorbis.Reader
	file    *os.File
	samples []float32
}

func newOGGDecoder(f *os.File) (Decoder, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}
	d := &oggDecoder{reader: reader, file: f}
	d.total = reader.Length() * int64(reader.Channels()) * 2
	return d, nil
}

func (d *oggDecoder) Read(p []byte) (int, error) {
	if n, ok := d.drain(p); ok {
		return n, nil
	}

	want := len(p) / 2
	if want < d.reader.Channels() {
		want = d.reader.Channels()
	}
	if cap(d.samples) < want {
		d.samples = make([]float32, want)
	}
	n, err := d.reader.Read(d.samples[:want])
	if n == 0 {
		if err == nil {
			err = io.EOF
		}
		return 0, err
	}

	raw := make([]byte, n*2)
	for i, s := range d.samples[:n] {
		putSample(raw[i*2:], int(s*32767))
	}
	return d.deliver(p, raw), err
}

func (d *oggDecoder) Seek(offset int64, whence int) (int64, error) {
	frameSize := int64(d.reader.Channels()) * 2
	pos, err := d.target(offset, whence, frameSize)
	if err != nil {
		return d.pos, err
	}
	if err := d.reader.SetPosition(pos / frameSize); err != nil {
		return d.pos, err
	}
	d.moved(pos)
	return pos, nil
}

func (d *oggDecoder) Length() int64     { return d.total }
func (d *oggDecoder) SampleRate() int   { return d.reader.SampleRate() }
func (d *oggDecoder) ChannelCount() int { return d.reader.Channels() }
func (d *oggDecoder) Close() error      { return d.file.Close() }
