// media/types.go
package media

import (
	"image"

	"github.com/classpix/classpixbackend/embedding"
)

// Detection is one face region found by a detector
type Detection struct {
	Rect       image.Rectangle
	Confidence float32
}

// FaceSample is a detected face region plus its extracted descriptor.
// Descriptor is nil when extraction failed for the region; the region is
// still persisted so a human can review it.
type FaceSample struct {
	X1, Y1, X2, Y2 int
	Confidence     float32
	Descriptor     *embedding.Descriptor
}

// Analysis is the decoded/detected view of one photograph on disk
type Analysis struct {
	ContentHash string
	Width       int
	Height      int
	TakenAt     *int64 // from EXIF, Unix timestamp
	Faces       []FaceSample
}

// FaceDetector finds face regions in a decoded image
type FaceDetector interface {
	Detect(img image.Image) ([]Detection, error)
}

// Extractor turns one face region of a decoded image into a descriptor.
// A (nil, nil) return means the region carried no usable signal.
type Extractor interface {
	Model() string
	ExtractRegion(img image.Image, region image.Rectangle) (*embedding.Descriptor, error)
}
