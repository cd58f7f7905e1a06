package render

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	defaultPalette = []rune(" .,:-;+=*%#@▓█")
	boxPalette     = []rune(" ░▒▓█")
	linesPalette   = []rune(" `.-=+*/\\|╱╲╳╬")
	sparkPalette   = []rune("  ´`^\"~:;*+×•¤°oO@#█")
)

// Palette returns the glyph ramp used for brightness mapping.
func Palette(name string) []rune {
	switch name {
	case "box":
		return boxPalette
	case "lines":
		return linesPalette
	case "spark":
		return sparkPalette
	default:
		return defaultPalette
	}
}

// PaletteNames returns all palette identifiers.
func PaletteNames() []string {
	return []string{"default", "box", "lines", "spark"}
}

var (
	resetANSI       = "\x1b[0m"
	precomputedANSI [256]string
)

func init() {
	for i := range precomputedANSI {
		precomputedANSI[i] = "\x1b[38;5;" + strconv.Itoa(i) + "m"
	}
}

var statusStyle = lipgloss.NewStyle().
	Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#DDDDFF"}).
	Background(lipgloss.Color("#1a1433"))

// TerminalConfig configures the ANSI presenter.
type TerminalConfig struct {
	Out       io.Writer
	Palette   string
	UseANSI   bool
	StatusBar bool
	// Width and Height are used when the terminal size cannot be read.
	Width  int
	Height int
}

// Terminal presents frames as coloured glyphs, two frame rows per cell row.
type Terminal struct {
	mu        sync.Mutex
	out       *bufio.Writer
	fd        int
	palette   []rune
	useANSI   bool
	statusBar bool
	cols      int
	rows      int
	started   bool
	closed    bool
	lines     []string
	listeners resizeListeners
}

func NewTerminal(cfg TerminalConfig) *Terminal {
	out := cfg.Out
	fd := -1
	if out == nil {
		out = os.Stdout
	}
	if f, ok := out.(*os.File); ok {
		fd = int(f.Fd())
	}
	t := &Terminal{
		out:       bufio.NewWriterSize(out, 1<<16),
		fd:        fd,
		palette:   Palette(cfg.Palette),
		useANSI:   cfg.UseANSI,
		statusBar: cfg.StatusBar,
		cols:      cfg.Width,
		rows:      cfg.Height,
	}
	if t.cols <= 0 {
		t.cols = 80
	}
	if t.rows <= 0 {
		t.rows = 24
	}
	if w, h, ok := t.readSize(); ok {
		t.cols, t.rows = w, h
	}
	return t
}

func (t *Terminal) readSize() (int, int, bool) {
	if t.fd < 0 {
		return 0, 0, false
	}
	w, h, err := term.GetSize(t.fd)
	if err != nil || w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}

func (t *Terminal) renderRows() int {
	rows := t.rows
	if t.statusBar && rows > 1 {
		rows--
	}
	return max(1, rows)
}

// ClientSize is one pixel per column and two per text row.
func (t *Terminal) ClientSize() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cols, t.renderRows() * 2
}

func (t *Terminal) PixelRatio() float64 { return 1 }

func (t *Terminal) OnResize(fn func(int, int)) func() { return t.listeners.add(fn) }

// Poll picks up terminal resizes.
func (t *Terminal) Poll() {
	w, h, ok := t.readSize()
	if !ok {
		return
	}
	t.mu.Lock()
	changed := w != t.cols || h != t.rows
	t.cols, t.rows = w, h
	rows := t.renderRows()
	t.mu.Unlock()
	if changed {
		t.listeners.notify(w, rows*2)
	}
}

func (t *Terminal) Present(f *Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrSurfaceClosed
	}
	if !t.started {
		t.started = true
		t.out.WriteString("\x1b[?1049h\x1b[2J\x1b[H\x1b[?25l")
	}

	cols, rows := t.cols, t.renderRows()
	t.convert(f, cols, rows)

	t.out.WriteString("\x1b[H")
	for _, line := range t.lines {
		t.out.WriteString(line)
		t.out.WriteByte('\n')
	}
	if t.statusBar {
		t.out.WriteString(statusBar(f.Status, cols))
	}
	return t.out.Flush()
}

// convert maps the frame onto cols×rows glyphs, one row per worker job.
func (t *Terminal) convert(f *Frame, cols, rows int) {
	if len(t.lines) != rows {
		t.lines = make([]string, rows)
	}
	if f.Width <= 0 || f.Height <= 0 || len(f.Pixels) < f.Width*f.Height*4 {
		for i := range t.lines {
			t.lines[i] = strings.Repeat(" ", cols)
		}
		return
	}

	parallelRows(rows, func(y int) {
		var builder strings.Builder
		builder.Grow(cols * 8)
		lastColor := -1
		for x := 0; x < cols; x++ {
			r, g, b := sampleCell(f, x, y, cols, rows)
			char, fg := t.glyph(r, g, b)
			if t.useANSI && fg != lastColor {
				builder.WriteString(colorCode(fg))
				lastColor = fg
			}
			builder.WriteRune(char)
		}
		if t.useANSI {
			builder.WriteString(resetANSI)
		}
		t.lines[y] = builder.String()
	})
}

// sampleCell averages the top and bottom half of a cell.
func sampleCell(f *Frame, cx, cy, cols, rows int) (float64, float64, float64) {
	x := clampInt((2*cx+1)*f.Width/(2*cols), 0, f.Width-1)
	yTop := clampInt((4*cy+1)*f.Height/(4*rows), 0, f.Height-1)
	yBot := clampInt((4*cy+3)*f.Height/(4*rows), 0, f.Height-1)
	a := (yTop*f.Width + x) * 4
	b := (yBot*f.Width + x) * 4
	r := (float64(f.Pixels[a]) + float64(f.Pixels[b])) / 510
	g := (float64(f.Pixels[a+1]) + float64(f.Pixels[b+1])) / 510
	bl := (float64(f.Pixels[a+2]) + float64(f.Pixels[b+2])) / 510
	return r, g, bl
}

func (t *Terminal) glyph(r, g, b float64) (rune, int) {
	luma := clamp01(0.2126*r + 0.7152*g + 0.0722*b)
	v := math.Pow(luma, 0.6)
	index := clampInt(int(v*float64(len(t.palette)-1)+0.5), 0, len(t.palette)-1)
	if !t.useANSI {
		return t.palette[index], 15
	}
	peak := math.Max(r, math.Max(g, b))
	if peak > 0 {
		boost := math.Min(1/peak, 3)
		r, g, b = r*boost, g*boost, b*boost
	}
	return t.palette[index], rgbToANSI(r*v, g*v, b*v)
}

func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.started {
		t.out.WriteString("\x1b[?25h\x1b[?1049l\x1b[0m")
	}
	return t.out.Flush()
}

func statusBar(text string, width int) string {
	if width <= 0 {
		return text
	}
	if len(text) > width {
		text = text[:width]
	}
	return statusStyle.Width(width).Render(text)
}

func colorCode(index int) string {
	if index < 0 {
		index = 0
	} else if index >= len(precomputedANSI) {
		index = len(precomputedANSI) - 1
	}
	return precomputedANSI[index]
}

func rgbToANSI(r, g, b float64) int {
	r = clamp01(r)
	g = clamp01(g)
	b = clamp01(b)

	// Grayscale palette for low saturation/contrast
	if math.Abs(r-g) < 0.02 && math.Abs(g-b) < 0.02 {
		gray := int(clampFloat(math.Round(r*23), 0, 23))
		return 232 + gray
	}

	ri := int(clampFloat(r*5+0.5, 0, 5))
	gi := int(clampFloat(g*5+0.5, 0, 5))
	bi := int(clampFloat(b*5+0.5, 0, 5))

	return 16 + 36*ri + 6*gi + bi
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
