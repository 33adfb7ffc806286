package lensing

import "errors"

var (
	// ErrNilAdapter is returned by NewDriver when no adapter is given.
	ErrNilAdapter = errors.New("lensing: nil adapter")

	// ErrNoFrame is returned when the color buffer is read before the first
	// render was initialized.
	ErrNoFrame = errors.New("lensing: no frame rendered yet")

	// ErrUnknownFormat is returned for an unsupported export format.
	ErrUnknownFormat = errors.New("lensing: unknown export format")

	// ErrClosed is returned by a Driver after Close.
	ErrClosed = errors.New("lensing: driver is closed")
)
