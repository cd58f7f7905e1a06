//go:build !sdl

package render

import "errors"

func NewSDLWindow(WindowConfig) (Window, error) {
	return nil, errors.New("SDL backend not enabled; rebuild with -tags sdl")
}

func SupportsSDL() bool { return false }
