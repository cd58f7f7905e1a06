package render

import (
	"math"

	"github.com/guidoenr/harmonic/internal/camera"
)

// BloomPass adds a blurred bright-pass over the scene.
type BloomPass struct {
	Strength  float64
	Radius    float64
	Threshold float64
}

// DefaultBloom is the stand-alone composer setting.
func DefaultBloom() BloomPass {
	return BloomPass{Strength: 1.1, Radius: 0.65, Threshold: 0.2}
}

// Composer renders the scene pass, runs bloom at half resolution and
// presents the tone-mapped result.
type Composer struct {
	renderer *Renderer
	Bloom    BloomPass
	// Exposure scales the composited colour; zero means 1.
	Exposure float64
	scene    *Target
	bright   *Target
	blur     *Target
	kernel   []float32
	frame    Frame
	width    int
	height   int
	closed   bool
}

func NewComposer(r *Renderer, bloom BloomPass) *Composer {
	c := &Composer{renderer: r, Bloom: bloom}
	c.SetSize(r.DrawingBufferSize())
	return c
}

// SetSize reallocates every pass buffer for a drawing buffer of w×h.
func (c *Composer) SetSize(width, height int) {
	width, height = max(1, width), max(1, height)
	c.width, c.height = width, height
	c.scene = NewTarget(width, height)
	hw, hh := max(1, width/2), max(1, height/2)
	c.bright = NewTarget(hw, hh)
	c.blur = NewTarget(hw, hh)
	c.frame = Frame{Pixels: make([]uint8, width*height*4), Width: width, Height: height}
	c.kernel = gaussian(blurRadius(c.Bloom.Radius))
}

func (c *Composer) Size() (int, int) { return c.width, c.height }

// PassSizes reports the scene and bloom buffer sizes.
func (c *Composer) PassSizes() (scene, bloom [2]int) {
	return [2]int{c.scene.Width, c.scene.Height}, [2]int{c.bright.Width, c.bright.Height}
}

// Render composes one frame and presents it through the renderer's surface.
func (c *Composer) Render(scene *Scene, cam *camera.Camera) (*Frame, error) {
	if c.closed {
		return nil, ErrRendererClosed
	}
	if err := c.renderer.Render(scene, cam, c.scene); err != nil {
		return nil, err
	}
	bloom := c.Bloom.Strength > 0
	if bloom {
		if len(c.kernel) != 2*blurRadius(c.Bloom.Radius)+1 {
			c.kernel = gaussian(blurRadius(c.Bloom.Radius))
		}
		c.brightPass()
		c.blurPass(c.bright, c.blur, 1, 0)
		c.blurPass(c.blur, c.bright, 0, 1)
	}
	c.composite(bloom)
	c.frame.Status = c.renderer.statusText()
	if err := c.renderer.Present(&c.frame); err != nil {
		return &c.frame, err
	}
	return &c.frame, nil
}

// brightPass downsamples 2× and keeps pixels above the luminance threshold.
func (c *Composer) brightPass() {
	src, dst := c.scene, c.bright
	lo := float32(c.Bloom.Threshold)
	parallelRows(dst.Height, func(y int) {
		for x := 0; x < dst.Width; x++ {
			var r, g, b float32
			for dy := 0; dy < 2; dy++ {
				sy := min(src.Height-1, y*2+dy)
				for dx := 0; dx < 2; dx++ {
					sx := min(src.Width-1, x*2+dx)
					i := (sy*src.Width + sx) * 3
					r += src.Color[i]
					g += src.Color[i+1]
					b += src.Color[i+2]
				}
			}
			r, g, b = r/4, g/4, b/4
			luma := 0.299*r + 0.587*g + 0.114*b
			a := float32(smoothstep(float64(lo), float64(lo)+0.01, float64(luma)))
			o := (y*dst.Width + x) * 3
			dst.Color[o], dst.Color[o+1], dst.Color[o+2] = r*a, g*a, b*a
		}
	})
}

func (c *Composer) blurPass(src, dst *Target, dx, dy int) {
	radius := len(c.kernel) / 2
	parallelRows(dst.Height, func(y int) {
		for x := 0; x < dst.Width; x++ {
			var r, g, b float32
			for k, w := range c.kernel {
				off := k - radius
				sx := clampInt(x+off*dx, 0, src.Width-1)
				sy := clampInt(y+off*dy, 0, src.Height-1)
				i := (sy*src.Width + sx) * 3
				r += src.Color[i] * w
				g += src.Color[i+1] * w
				b += src.Color[i+2] * w
			}
			o := (y*dst.Width + x) * 3
			dst.Color[o], dst.Color[o+1], dst.Color[o+2] = r, g, b
		}
	})
}

func (c *Composer) composite(bloom bool) {
	src, glow, out := c.scene, c.bright, c.frame.Pixels
	strength := float32(c.Bloom.Strength)
	exposure := float32(1)
	if c.Exposure > 0 {
		exposure = float32(c.Exposure)
	}
	parallelRows(src.Height, func(y int) {
		gy := min(glow.Height-1, y/2)
		for x := 0; x < src.Width; x++ {
			i := (y*src.Width + x) * 3
			r, g, b := src.Color[i], src.Color[i+1], src.Color[i+2]
			if bloom {
				gi := (gy*glow.Width + min(glow.Width-1, x/2)) * 3
				r += glow.Color[gi] * strength
				g += glow.Color[gi+1] * strength
				b += glow.Color[gi+2] * strength
			}
			o := (y*src.Width + x) * 4
			out[o] = toByte(r * exposure)
			out[o+1] = toByte(g * exposure)
			out[o+2] = toByte(b * exposure)
			out[o+3] = 255
		}
	})
}

// Close releases the pass buffers.
func (c *Composer) Close() error {
	c.closed = true
	c.scene, c.bright, c.blur = nil, nil, nil
	c.frame.Pixels = nil
	return nil
}

func blurRadius(radius float64) int {
	return max(1, int(math.Round(1+radius*4)))
}

func gaussian(radius int) []float32 {
	sigma := math.Max(0.5, float64(radius)/2)
	k := make([]float32, 2*radius+1)
	var sum float32
	for i := range k {
		x := float64(i - radius)
		k[i] = float32(math.Exp(-x * x / (2 * sigma * sigma)))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

func toByte(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
