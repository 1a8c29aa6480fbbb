package media

import (
	"fmt"
	"image"
	"log"
	"os"

	"github.com/rwcarlsen/goexif/exif"
)

// PhotoMetadata holds the dimensions and capture time of an imported
// photograph
type PhotoMetadata struct {
	Width   int
	Height  int
	TakenAt *int64 // Unix timestamp
}

// GetPhotoMetadata extracts dimensions and the EXIF capture time for a file.
// Missing EXIF data is not an error; most fields are simply absent.
func GetPhotoMetadata(filePath string) (*PhotoMetadata, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("metadata: failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	meta := &PhotoMetadata{}

	config, _, err := image.DecodeConfig(file)
	if err == nil {
		meta.Width = config.Width
		meta.Height = config.Height
	} else {
		log.Printf("metadata: Warning - Could not decode config for dimensions of %s: %v", filePath, err)
	}

	if _, err := file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("metadata: failed to seek file %s: %w", filePath, err)
	}

	exifData, err := exif.Decode(file)
	if err != nil {
		// not necessarily a fatal error, file might just lack EXIF data
		return meta, nil
	}

	if taken, err := exifData.DateTime(); err == nil {
		unix := taken.Unix()
		meta.TakenAt = &unix
	}
	return meta, nil
}
