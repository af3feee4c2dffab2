// Package pptx reads and writes decks as PresentationML (.pptx) packages.
package pptx

import (
	"errors"
	"fmt"
)

// ErrUnsupportedImage is returned when picture bytes are not a PNG, JPEG or GIF image.
var ErrUnsupportedImage = errors.New("unsupported image")

// ErrNotADeck is returned when input bytes are not a presentation package.
var ErrNotADeck = errors.New("not a presentation package")

// PartError reports a failure reading or writing one package part.
type PartError struct {
	Part  string
	Cause error
}

func (e *PartError) Error() string {
	return fmt.Sprintf("pptx part %s: %v", e.Part, e.Cause)
}

func (e *PartError) Unwrap() error {
	return e.Cause
}
