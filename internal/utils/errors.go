package utils

import "fmt"

// ImageProcessingError represents errors that can occur while reading,
// decoding or writing image files.
type ImageProcessingError struct {
	Operation string
	Path      string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("image processing error in %s (%s): %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *ImageProcessingError) Unwrap() error { return e.Err }
