package media

import (
	"image"

	"github.com/classpix/classpixbackend/embedding"
	"github.com/disintegration/imaging"
)

// grid extractor geometry: a 64x64 grayscale face split into a 4x4 grid of
// 16x16 blocks, 8 intensity bins per block, 128 values total
const (
	gridFaceSize  = 64
	gridBlocks    = 4
	gridBlockSize = gridFaceSize / gridBlocks
	gridBins      = 8
)

// GridExtractor produces a classical block-histogram face descriptor without
// any neural network. It is far weaker than the DNN extractor but has no
// model-file or OpenCV runtime requirements, which makes it the fallback for
// environments that cannot ship the ONNX models.
type GridExtractor struct{}

var _ Extractor = (*GridExtractor)(nil)

func NewGridExtractor() *GridExtractor {
	return &GridExtractor{}
}

// Model identifies which descriptor space this extractor produces
func (e *GridExtractor) Model() string {
	return embedding.ModelGrid
}

// ExtractRegion crops the face region, normalizes it to a fixed grayscale
// size, and histograms each grid block. An empty region returns (nil, nil).
func (e *GridExtractor) ExtractRegion(img image.Image, region image.Rectangle) (*embedding.Descriptor, error) {
	region = region.Intersect(img.Bounds())
	if region.Empty() {
		return nil, nil
	}

	face := imaging.Crop(img, region)
	face = imaging.Resize(face, gridFaceSize, gridFaceSize, imaging.Linear)
	face = imaging.Grayscale(face)

	vector := make([]float32, gridBlocks*gridBlocks*gridBins)
	for by := 0; by < gridBlocks; by++ {
		for bx := 0; bx < gridBlocks; bx++ {
			histOffset := (by*gridBlocks + bx) * gridBins
			for y := 0; y < gridBlockSize; y++ {
				for x := 0; x < gridBlockSize; x++ {
					px := face.NRGBAAt(bx*gridBlockSize+x, by*gridBlockSize+y)
					// grayscale image, any channel carries the intensity
					bin := int(px.R) * gridBins / 256
					vector[histOffset+bin]++
				}
			}
		}
	}

	desc, err := embedding.NewDescriptor(embedding.ModelGrid, embedding.Normalize(vector))
	if err != nil {
		return nil, err
	}
	return &desc, nil
}
