// File: internal/sampler/errors.go
package sampler

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below, for callers that only care
// about the failure class.
var (
	ErrImageLoad        = errors.New("image load failed")
	ErrSampleExtraction = errors.New("sample extraction failed")
)

// ImageLoadError reports a failure to fetch or decode the source image.
type ImageLoadError struct {
	Source string
	Cause  error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("failed to load image %q: %v", e.Source, e.Cause)
}

func (e *ImageLoadError) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrImageLoad) match.
func (e *ImageLoadError) Is(target error) bool { return target == ErrImageLoad }

// SampleExtractionError reports a failure to read pixels out of a decoded
// image, or a request for an impossible sample grid.
type SampleExtractionError struct {
	Source string
	Cause  error
}

func (e *SampleExtractionError) Error() string {
	return fmt.Sprintf("failed to extract samples from %q: %v", e.Source, e.Cause)
}

func (e *SampleExtractionError) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrSampleExtraction) match.
func (e *SampleExtractionError) Is(target error) bool { return target == ErrSampleExtraction }
