package playback

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/guidoenr/harmonic/internal/audio/decode"
)

type fakeDeck struct {
	mu      sync.Mutex
	loads   []string
	playErr error
	loadErr error
	playing bool
	volume  float64
	seeks   []time.Duration
	done    chan struct{}
}

func newFakeDeck() *fakeDeck {
	return &fakeDeck{done: make(chan struct{})}
}

func (d *fakeDeck) Load(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loadErr != nil {
		return d.loadErr
	}
	d.loads = append(d.loads, path)
	d.done = make(chan struct{})
	return nil
}

func (d *fakeDeck) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.playErr != nil {
		return d.playErr
	}
	d.playing = true
	return nil
}

func (d *fakeDeck) Pause() {
	d.mu.Lock()
	d.playing = false
	d.mu.Unlock()
}

func (d *fakeDeck) Seek(pos time.Duration) error {
	d.mu.Lock()
	d.seeks = append(d.seeks, pos)
	d.mu.Unlock()
	return nil
}

func (d *fakeDeck) SetVolume(v float64) {
	d.mu.Lock()
	d.volume = v
	d.mu.Unlock()
}

func (d *fakeDeck) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

func (d *fakeDeck) finish() {
	d.mu.Lock()
	close(d.done)
	d.mu.Unlock()
}

func (d *fakeDeck) lastLoad() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.loads) == 0 {
		return ""
	}
	return d.loads[len(d.loads)-1]
}

func (d *fakeDeck) loadCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.loads)
}

func (d *fakeDeck) Track() decode.Metadata {
	return decode.Metadata{Title: trackName(d.lastLoad())}
}

func (d *fakeDeck) Position() time.Duration { return time.Second }
func (d *fakeDeck) Duration() time.Duration { return 3 * time.Second }

type fakeResumer struct {
	suspended bool
	err       error
	calls     int
}

func (r *fakeResumer) Suspended() bool { return r.suspended }

func (r *fakeResumer) Resume(context.Context) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	r.suspended = false
	return nil
}

func TestPlayRejectedLeavesTransportStopped(t *testing.T) {
	deck := newFakeDeck()
	deck.playErr = errors.New("autoplay blocked")
	tr := New(deck, []string{"a.mp3"}, Options{})

	if err := tr.Play(context.Background()); err == nil {
		t.Fatalf("expected Play to report the rejection")
	}
	if tr.Playing() {
		t.Fatalf("transport playing after rejected Play")
	}
	if err := tr.Toggle(context.Background()); err == nil || tr.Playing() {
		t.Fatalf("Toggle after rejection: err=%v playing=%v", err, tr.Playing())
	}
}

func TestPlayResumesSuspendedOutput(t *testing.T) {
	deck := newFakeDeck()
	res := &fakeResumer{suspended: true}
	tr := New(deck, []string{"a.mp3"}, Options{Resumer: res})
	if err := tr.Play(context.Background()); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if res.calls != 1 || !tr.Playing() {
		t.Fatalf("resume calls=%d playing=%v", res.calls, tr.Playing())
	}

	failing := &fakeResumer{suspended: true, err: errors.New("no device")}
	tr = New(newFakeDeck(), []string{"a.mp3"}, Options{Resumer: failing})
	if err := tr.Play(context.Background()); err == nil || tr.Playing() {
		t.Fatalf("failed resume: err=%v playing=%v", err, tr.Playing())
	}
}

func TestNextPrevWrap(t *testing.T) {
	deck := newFakeDeck()
	tr := New(deck, []string{"a.mp3", "b.mp3", "c.mp3"}, Options{})
	ctx := context.Background()

	if err := tr.Prev(ctx); err != nil {
		t.Fatal(err)
	}
	if tr.State().Index != 2 {
		t.Fatalf("prev from first = %d, want 2", tr.State().Index)
	}
	if err := tr.Next(ctx); err != nil {
		t.Fatal(err)
	}
	if tr.State().Index != 0 {
		t.Fatalf("next from last = %d, want 0", tr.State().Index)
	}
	if len(deck.loads) != 0 {
		t.Fatalf("stopped transport loaded %v", deck.loads)
	}

	if err := tr.Play(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tr.Next(ctx); err != nil {
		t.Fatal(err)
	}
	if deck.lastLoad() != "b.mp3" || !tr.Playing() {
		t.Fatalf("next while playing loaded %q playing=%v", deck.lastLoad(), tr.Playing())
	}
	if st := tr.State(); st.Track.Title != "b" || st.Count != 3 || st.Duration != 3 {
		t.Fatalf("state = %+v", st)
	}
}

func TestEmptyQueue(t *testing.T) {
	tr := New(newFakeDeck(), nil, Options{})
	if err := tr.Play(context.Background()); !errors.Is(err, ErrEmptyQueue) {
		t.Fatalf("Play = %v", err)
	}
	if err := tr.Next(context.Background()); !errors.Is(err, ErrEmptyQueue) {
		t.Fatalf("Next = %v", err)
	}
}

func TestVolumeClamps(t *testing.T) {
	deck := newFakeDeck()
	tr := New(deck, []string{"a.mp3"}, Options{Volume: 0.5})
	if deck.volume != 0.5 {
		t.Fatalf("initial deck volume = %v", deck.volume)
	}
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 1.4, want: 1},
		{in: -0.2, want: 0},
		{in: 0.3, want: 0.3},
	}
	for _, tc := range tests {
		tr.SetVolume(tc.in)
		if tr.Volume() != tc.want || deck.volume != tc.want {
			t.Fatalf("SetVolume(%v) = %v/%v, want %v", tc.in, tr.Volume(), deck.volume, tc.want)
		}
	}
	tr.AdjustVolume(0.9)
	if tr.Volume() != 1 {
		t.Fatalf("AdjustVolume overflow = %v", tr.Volume())
	}
}

func TestSeekClampsToTrack(t *testing.T) {
	deck := newFakeDeck()
	tr := New(deck, []string{"a.mp3"}, Options{})
	if err := tr.Seek(1); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("Seek before Play = %v, want ErrNotLoaded", err)
	}
	if err := tr.Play(context.Background()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		in   float64
		want time.Duration
	}{
		{in: 1.25, want: 1250 * time.Millisecond},
		{in: 10, want: 3 * time.Second},
		{in: -2, want: 0},
	}
	for _, tc := range tests {
		if err := tr.Seek(tc.in); err != nil {
			t.Fatalf("Seek(%v): %v", tc.in, err)
		}
		if got := deck.seeks[len(deck.seeks)-1]; got != tc.want {
			t.Fatalf("Seek(%v) sent %v to the deck, want %v", tc.in, got, tc.want)
		}
	}

	// The fake deck always reports a position of one second.
	if err := tr.SeekBy(0.5); err != nil {
		t.Fatal(err)
	}
	if got := deck.seeks[len(deck.seeks)-1]; got != 1500*time.Millisecond {
		t.Fatalf("SeekBy(0.5) sent %v", got)
	}
}

func TestOnChangeReceivesState(t *testing.T) {
	tr := New(newFakeDeck(), []string{"a.mp3"}, Options{})
	var got []bool
	tr.OnChange(func(s State) { got = append(got, s.Playing) })
	_ = tr.Play(context.Background())
	tr.Pause()
	if len(got) != 2 || !got[0] || got[1] {
		t.Fatalf("listener saw %v", got)
	}
}

func TestRunAdvancesOnTrackEnd(t *testing.T) {
	deck := newFakeDeck()
	tr := New(deck, []string{"a.mp3", "b.mp3"}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := tr.Play(ctx); err != nil {
		t.Fatal(err)
	}

	errc := make(chan error, 1)
	go func() { errc <- tr.Run(ctx) }()

	deck.finish()
	deadline := time.After(2 * time.Second)
	for deck.lastLoad() != "b.mp3" {
		select {
		case <-deadline:
			t.Fatal("transport did not advance")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v", err)
	}
}

func TestRunFollowsReplacedTrack(t *testing.T) {
	deck := newFakeDeck()
	tr := New(deck, []string{"a.mp3", "b.mp3"}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := tr.Play(ctx); err != nil {
		t.Fatal(err)
	}

	errc := make(chan error, 1)
	go func() { errc <- tr.Run(ctx) }()

	// Run is already waiting on the first track when the user skips.
	time.Sleep(20 * time.Millisecond)
	if err := tr.Next(ctx); err != nil {
		t.Fatal(err)
	}
	deck.finish()

	deadline := time.After(2 * time.Second)
	for deck.lastLoad() != "a.mp3" || deck.loadCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("end of the skipped-to track was missed after %d loads", deck.loadCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v", err)
	}
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	album := filepath.Join(dir, "album")
	if err := os.MkdirAll(album, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"album/02.flac", "album/01.mp3", "album/cover.jpg", "single.ogg"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	list := filepath.Join(dir, "mix.m3u")
	body := "#EXTM3U\nsingle.ogg\nmissing.mp3\nalbum/cover.jpg\n"
	if err := os.WriteFile(list, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := Collect([]string{album, list})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := []string{
		filepath.Join(album, "01.mp3"),
		filepath.Join(album, "02.flac"),
		filepath.Join(dir, "single.ogg"),
	}
	if len(got) != len(want) {
		t.Fatalf("Collect = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Collect = %v, want %v", got, want)
		}
	}

	if _, err := Collect([]string{filepath.Join(album, "cover.jpg")}); !errors.Is(err, decode.ErrUnsupportedFormat) {
		t.Fatalf("Collect unsupported = %v", err)
	}
}
