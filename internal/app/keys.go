package app

import (
	"context"
	"sync"

	"github.com/eiannone/keyboard"
	"github.com/guidoenr/harmonic/internal/camera"
	"github.com/guidoenr/harmonic/internal/log"
)

// keyHold is how long a terminal key press counts as held; terminals only
// report presses, so auto-repeat keeps a held key alive.
const keyHold = 0.15

const (
	volumeStep = 0.05
	seekStep   = 5.0
)

var terminalKeys = map[keyboard.Key]string{
	keyboard.KeyArrowUp:    "up",
	keyboard.KeyArrowDown:  "down",
	keyboard.KeyArrowLeft:  "left",
	keyboard.KeyArrowRight: "right",
	keyboard.KeySpace:      "space",
	keyboard.KeyEsc:        "escape",
	keyboard.KeyCtrlC:      "escape",
	keyboard.KeyTab:        "tab",
}

// startKeyboard forwards terminal key presses to the input bus until ctx is
// done.
func startKeyboard(ctx context.Context, input *camera.Bus) {
	if err := keyboard.Open(); err != nil {
		log.Warnf("keyboard input disabled: %v", err)
		return
	}

	closeOnce := &sync.Once{}
	go func() {
		<-ctx.Done()
		closeOnce.Do(func() {
			_ = keyboard.Close()
		})
	}()

	go func() {
		defer closeOnce.Do(func() {
			_ = keyboard.Close()
		})
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			name, ok := terminalKeys[key]
			if !ok {
				if char == 0 {
					continue
				}
				name = string(toLower(char))
				if name == " " {
					name = "space"
				}
			}
			input.Publish(camera.Event{Kind: camera.KeyDown, Key: name, Hold: keyHold})
			switch name {
			case "z":
				input.Publish(camera.Event{Kind: camera.Scroll, DY: -1})
			case "x":
				input.Publish(camera.Event{Kind: camera.Scroll, DY: 1})
			}
		}
	}()
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + 'a' - 'A'
	}
	return r
}

// handleKey runs the command bound to a key press, if any.
func (a *App) handleKey(ev camera.Event) {
	if ev.Kind != camera.KeyDown {
		return
	}
	switch ev.Key {
	case "1", "2", "3":
		presets := camera.Presets()
		a.setPreset(string(presets[ev.Key[0]-'1']))
	case "c":
		a.setPreset(string(a.vis.CameraPreset().Next()))
	case "m":
		next := a.vis.Mode().Next()
		if err := a.vis.SetMode(string(next)); err != nil {
			log.Warnf("mode %s: %v", next, err)
		}
	case "space":
		if a.transport != nil {
			_ = a.transport.Toggle(a.ctx)
		}
	case "n":
		if a.transport != nil {
			_ = a.transport.Next(a.ctx)
		}
	case "p":
		if a.transport != nil {
			_ = a.transport.Prev(a.ctx)
		}
	case "+", "=", "keypad +":
		if a.transport != nil {
			a.transport.AdjustVolume(volumeStep)
		}
	case "-", "keypad -":
		if a.transport != nil {
			a.transport.AdjustVolume(-volumeStep)
		}
	case "[", "]":
		if a.transport == nil {
			return
		}
		delta := seekStep
		if ev.Key == "[" {
			delta = -seekStep
		}
		if err := a.transport.SeekBy(delta); err != nil {
			log.Debugf("seek: %v", err)
		}
	case "escape":
		a.requestQuit()
	}
}

func (a *App) setPreset(name string) {
	if err := a.vis.SetCameraPreset(name); err != nil {
		log.Warnf("camera preset %s: %v", name, err)
		return
	}
	log.Infof("camera preset -> %s", name)
}
