package media

import (
	"fmt"
	"log"

	"github.com/classpix/classpixbackend/embedding"
)

// Analyzer ties a face detector and a descriptor extractor together into the
// per-photograph pipeline: decode, hash, read metadata, detect faces, and
// extract a descriptor for each detected region.
type Analyzer struct {
	detector  FaceDetector
	extractor Extractor
}

func NewAnalyzer(detector FaceDetector, extractor Extractor) *Analyzer {
	return &Analyzer{detector: detector, extractor: extractor}
}

// Model identifies the descriptor space the analyzer's extractor produces
func (a *Analyzer) Model() string {
	return a.extractor.Model()
}

// Analyze processes one photograph on disk. Extraction failures on individual
// faces leave that face descriptor-less rather than failing the photograph.
func (a *Analyzer) Analyze(path string) (*Analysis, error) {
	hash, err := HashFile(path)
	if err != nil {
		return nil, err
	}

	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{
		ContentHash: hash,
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
	}

	if meta, err := GetPhotoMetadata(path); err == nil {
		analysis.TakenAt = meta.TakenAt
	} else {
		log.Printf("analyzer: could not read metadata for %s: %v", path, err)
	}

	detections, err := a.detector.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("face detection failed for %s: %w", path, err)
	}

	for _, det := range detections {
		sample := FaceSample{
			X1:         det.Rect.Min.X,
			Y1:         det.Rect.Min.Y,
			X2:         det.Rect.Max.X,
			Y2:         det.Rect.Max.Y,
			Confidence: det.Confidence,
		}
		desc, err := a.extractor.ExtractRegion(img, det.Rect)
		if err != nil {
			log.Printf("analyzer: descriptor extraction failed for %s region %v: %v", path, det.Rect, err)
		} else {
			sample.Descriptor = desc
		}
		analysis.Faces = append(analysis.Faces, sample)
	}

	return analysis, nil
}

// ExtractFromFile returns a descriptor for the most prominent face in a
// reference photograph, or (nil, nil) when no face is found. When several
// faces are detected the largest region wins; ties keep the first detection.
func (a *Analyzer) ExtractFromFile(path string) (*embedding.Descriptor, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}

	detections, err := a.detector.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("face detection failed for %s: %w", path, err)
	}
	if len(detections) == 0 {
		return nil, nil
	}

	best := detections[0]
	bestArea := best.Rect.Dx() * best.Rect.Dy()
	for _, det := range detections[1:] {
		if area := det.Rect.Dx() * det.Rect.Dy(); area > bestArea {
			best = det
			bestArea = area
		}
	}

	return a.extractor.ExtractRegion(img, best.Rect)
}
