//go:build gl

package render

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/guidoenr/harmonic/internal/camera"
)

const quadVertSrc = `#version 410 core
layout (location = 0) in vec2 aPos;
out vec2 vUV;
void main() {
	vUV = vec2(aPos.x * 0.5 + 0.5, 0.5 - aPos.y * 0.5);
	gl_Position = vec4(aPos, 0.0, 1.0);
}
` + "\x00"

const quadFragSrc = `#version 410 core
in vec2 vUV;
uniform sampler2D uFrame;
out vec4 fragColor;
void main() {
	fragColor = vec4(texture(uFrame, vUV).rgb, 1.0);
}
` + "\x00"

var glKeyNames = map[glfw.Key]string{
	glfw.KeyLeft:   "left",
	glfw.KeyRight:  "right",
	glfw.KeyUp:     "up",
	glfw.KeyDown:   "down",
	glfw.KeySpace:  "space",
	glfw.KeyEscape: "escape",
	glfw.KeyTab:    "tab",
}

type glWindow struct {
	mu        sync.Mutex
	thread    *osThread
	window    *glfw.Window
	program   uint32
	vao       uint32
	vbo       uint32
	tex       uint32
	texWidth  int
	texHeight int
	width     int
	height    int
	ratio     float64
	title     string
	input     *camera.Bus
	dragging  bool
	lastX     float64
	lastY     float64
	resized   bool
	closed    bool
	listeners resizeListeners
}

// NewGLWindow opens a GLFW window with a 4.1 core context and draws frames
// as a fullscreen textured quad.
func NewGLWindow(cfg WindowConfig) (Window, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 1280, 720
	}
	if cfg.Title == "" {
		cfg.Title = "harmonic"
	}
	w := &glWindow{
		thread: startThread(),
		width:  cfg.Width,
		height: cfg.Height,
		ratio:  1,
		input:  cfg.Input,
	}
	if err := w.thread.call(func() error { return w.init(cfg) }); err != nil {
		w.thread.stop()
		return nil, err
	}
	return w, nil
}

func (w *glWindow) init(cfg WindowConfig) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("create window: %w", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)
	w.window = window

	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return fmt.Errorf("gl init: %w", err)
	}
	if fw, _ := window.GetFramebufferSize(); fw > 0 {
		w.ratio = float64(fw) / float64(cfg.Width)
	}

	prog, err := linkProgram(quadVertSrc, quadFragSrc)
	if err != nil {
		window.Destroy()
		glfw.Terminate()
		return fmt.Errorf("quad program: %w", err)
	}
	w.program = prog
	gl.UseProgram(prog)
	gl.Uniform1i(gl.GetUniformLocation(prog, gl.Str("uFrame\x00")), 0)

	quad := []float32{-1, -1, 1, -1, -1, 1, 1, 1}
	gl.GenVertexArrays(1, &w.vao)
	gl.GenBuffers(1, &w.vbo)
	gl.BindVertexArray(w.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, w.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(quad)*4, gl.Ptr(quad), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 2*4, unsafe.Pointer(uintptr(0)))
	gl.BindVertexArray(0)

	gl.GenTextures(1, &w.tex)
	gl.BindTexture(gl.TEXTURE_2D, w.tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	window.SetSizeCallback(func(_ *glfw.Window, width, height int) {
		if width <= 0 || height <= 0 {
			return
		}
		w.width, w.height = width, height
		w.resized = true
	})
	window.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button == glfw.MouseButtonLeft {
			w.dragging = action == glfw.Press
			w.lastX, w.lastY = window.GetCursorPos()
		}
	})
	window.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if w.dragging {
			w.publish(camera.Event{Kind: camera.PointerDrag, DX: x - w.lastX, DY: y - w.lastY})
		}
		w.lastX, w.lastY = x, y
	})
	window.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		w.publish(camera.Event{Kind: camera.Scroll, DY: -yoff})
	})
	window.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, _ glfw.ModifierKey) {
		name, ok := glKeyNames[key]
		if !ok {
			name = strings.ToLower(glfw.GetKeyName(key, scancode))
		}
		if name == "" {
			return
		}
		switch action {
		case glfw.Press:
			w.publish(camera.Event{Kind: camera.KeyDown, Key: name})
		case glfw.Release:
			w.publish(camera.Event{Kind: camera.KeyUp, Key: name})
		}
	})
	return nil
}

func (w *glWindow) publish(ev camera.Event) {
	if w.input != nil {
		w.input.Publish(ev)
	}
}

func (w *glWindow) ClientSize() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width, w.height
}

func (w *glWindow) PixelRatio() float64 { return w.ratio }

func (w *glWindow) OnResize(fn func(int, int)) func() { return w.listeners.add(fn) }

// Poll runs the GLFW event pump; callbacks fire on the window thread.
func (w *glWindow) Poll() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.resized = false
	_ = w.thread.call(func() error {
		glfw.PollEvents()
		return nil
	})
	resized, width, height := w.resized, w.width, w.height
	w.mu.Unlock()
	if resized {
		w.listeners.notify(width, height)
	}
}

func (w *glWindow) Present(f *Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrSurfaceClosed
	}
	if f.Width <= 0 || f.Height <= 0 || len(f.Pixels) < f.Width*f.Height*4 {
		return nil
	}
	return w.thread.call(func() error {
		if w.window.ShouldClose() {
			return ErrRendererQuit
		}
		if f.Status != "" && f.Status != w.title {
			w.window.SetTitle(f.Status)
			w.title = f.Status
		}

		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, w.tex)
		if w.texWidth != f.Width || w.texHeight != f.Height {
			gl.TexImage2D(
				gl.TEXTURE_2D, 0, gl.RGBA8,
				int32(f.Width), int32(f.Height), 0,
				gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(f.Pixels),
			)
			w.texWidth, w.texHeight = f.Width, f.Height
		} else {
			gl.TexSubImage2D(
				gl.TEXTURE_2D, 0, 0, 0,
				int32(f.Width), int32(f.Height),
				gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(f.Pixels),
			)
		}

		fbW, fbH := w.window.GetFramebufferSize()
		gl.Viewport(0, 0, int32(fbW), int32(fbH))
		gl.ClearColor(0, 0, 0, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT)
		gl.UseProgram(w.program)
		gl.BindVertexArray(w.vao)
		gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
		gl.BindVertexArray(0)
		w.window.SwapBuffers()
		return nil
	})
}

func (w *glWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.thread.call(func() error {
		gl.DeleteTextures(1, &w.tex)
		gl.DeleteBuffers(1, &w.vbo)
		gl.DeleteVertexArrays(1, &w.vao)
		gl.DeleteProgram(w.program)
		w.window.Destroy()
		glfw.Terminate()
		return nil
	})
	w.thread.stop()
	return err
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		buf := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(buf))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile shader: %s", strings.TrimRight(buf, "\x00"))
	}
	return shader, nil
}

func linkProgram(vertSrc, fragSrc string) (uint32, error) {
	vs, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fs, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vs)
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)
	gl.DetachShader(program, vs)
	gl.DetachShader(program, fs)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		buf := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(program, logLen, nil, gl.Str(buf))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link program: %s", strings.TrimRight(buf, "\x00"))
	}
	return program, nil
}

func SupportsGL() bool { return true }
