//go:build !gl

package render

import "errors"

func NewGLWindow(WindowConfig) (Window, error) {
	return nil, errors.New("GL backend not enabled; rebuild with -tags gl")
}

func SupportsGL() bool { return false }
