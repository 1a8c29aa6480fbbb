package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/classpix/classpixbackend/embedding"
)

const (
	defaultImportQueueSize  = 200
	defaultNumImportWorkers = 4
	defaultFaceModel        = embedding.ModelArcFace
	defaultDetectorConf     = 0.5
)

// default accept/review thresholds per descriptor model. Cosine scores above
// Accept auto-assign, scores in (Review, Accept] assign tentatively for human
// review, and anything at or below Review stays unassigned.
var defaultThresholds = map[string]embedding.Thresholds{
	embedding.ModelArcFace: {Accept: 0.77, Review: 0.55},
	embedding.ModelGrid:    {Accept: 0.85, Review: 0.75},
}

type Config struct {
	// source directory (where event photographs are scanned)
	RootDirectory string

	// database path
	DatabasePath string

	// descriptor model selection ("arcface" or "grid")
	FaceModel string

	// matching thresholds per descriptor model
	Thresholds map[string]embedding.Thresholds

	// worker settings
	ImportQueueSize  int
	NumImportWorkers int

	// face detection model paths (DNN)
	FaceDNNNetConfigPath string
	FaceDNNNetModelPath  string
	FaceDNNConfThreshold float64

	// face recognition model path (ONNX, used when FaceModel is "arcface")
	FaceRecognitionModelPath string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvFloatOrDefault(envVar string, defaultVal float64) float64 {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s'. Using default %f. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	root := getEnvOrDefault("ROOT_DIRECTORY", ".")
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for root directory '%s': %w", root, err)
	}

	dbPath := getEnvOrDefault("DATABASE_PATH", "classpix.db")

	faceModel := getEnvOrDefault("FACE_MODEL", defaultFaceModel)
	if _, ok := embedding.ModelDim(faceModel); !ok {
		return Config{}, fmt.Errorf("invalid FACE_MODEL '%s': %w", faceModel, embedding.ErrUnknownModel)
	}

	thresholds, err := loadThresholds(faceModel)
	if err != nil {
		return Config{}, err
	}

	queueSize := getEnvIntOrDefault("IMPORT_QUEUE_SIZE", defaultImportQueueSize)
	numWorkers := getEnvIntOrDefault("NUM_IMPORT_WORKERS", defaultNumImportWorkers)

	faceDNNConfig := getEnvOrDefault("FACE_DNN_CONFIG_PATH", "./models/deploy.prototxt.txt")
	faceDNNModel := getEnvOrDefault("FACE_DNN_MODEL_PATH", "./models/res10_300x300_ssd_iter_140000_fp16.caffemodel")
	faceDNNConf := getEnvFloatOrDefault("FACE_DNN_CONF_THRESHOLD", defaultDetectorConf)
	recognitionModel := getEnvOrDefault("FACE_RECOGNITION_MODEL_PATH", "./models/arcface.onnx")

	cfg := Config{
		RootDirectory:            absRoot,
		DatabasePath:             dbPath,
		FaceModel:                faceModel,
		Thresholds:               thresholds,
		ImportQueueSize:          queueSize,
		NumImportWorkers:         numWorkers,
		FaceDNNNetConfigPath:     faceDNNConfig,
		FaceDNNNetModelPath:      faceDNNModel,
		FaceDNNConfThreshold:     faceDNNConf,
		FaceRecognitionModelPath: recognitionModel,
	}

	return cfg, nil
}

// loadThresholds starts from the built-in defaults and applies env overrides
// to the active model's pair. Overridden pairs must still satisfy
// Accept > Review >= 0.
func loadThresholds(activeModel string) (map[string]embedding.Thresholds, error) {
	thresholds := make(map[string]embedding.Thresholds, len(defaultThresholds))
	for model, t := range defaultThresholds {
		thresholds[model] = t
	}

	active := thresholds[activeModel]
	active.Accept = getEnvFloatOrDefault("FACE_ACCEPT_THRESHOLD", active.Accept)
	active.Review = getEnvFloatOrDefault("FACE_REVIEW_THRESHOLD", active.Review)
	if err := active.Validate(); err != nil {
		return nil, fmt.Errorf("invalid thresholds for model '%s': %w", activeModel, err)
	}
	thresholds[activeModel] = active

	return thresholds, nil
}
