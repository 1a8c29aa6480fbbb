package media

import (
	"fmt"
	"image"
	"log"
	"os"

	"github.com/classpix/classpixbackend/embedding"
	"gocv.io/x/gocv"
)

// DNNExtractor extracts face descriptors with a deep recognition network
// (ArcFace-style) via OpenCV's DNN module
type DNNExtractor struct {
	Net     gocv.Net
	Enabled bool

	InputSizeW int
	InputSizeH int
}

var _ Extractor = (*DNNExtractor)(nil)

// NewDNNExtractor loads the recognition network from an ONNX model file
func NewDNNExtractor(modelPath string) *DNNExtractor {
	if modelPath == "" {
		log.Println("recognition: model path is empty, disabling DNN extractor")
		return &DNNExtractor{Enabled: false}
	}

	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		log.Printf("recognition: ERROR - Model file does not exist: %s", modelPath)
		return &DNNExtractor{Enabled: false}
	}

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		log.Printf("recognition: ERROR - ReadNet returned an empty network for %s. Check file path and integrity.", modelPath)
		return &DNNExtractor{Enabled: false}
	}
	log.Printf("recognition: successfully loaded recognition model %s", modelPath)

	cudaBackendErr := net.SetPreferableBackend(gocv.NetBackendCUDA)
	cudaTargetErr := net.SetPreferableTarget(gocv.NetTargetCUDA)

	if cudaBackendErr == nil && cudaTargetErr == nil {
		log.Println("recognition: Set backend/target to CUDA")
	} else {
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
		log.Println("recognition: Set backend/target to CPU (Default)")
	}

	return &DNNExtractor{
		Net:        net,
		Enabled:    true,
		InputSizeW: 112,
		InputSizeH: 112,
	}
}

func (e *DNNExtractor) Close() {
	if e != nil && e.Enabled {
		e.Net.Close()
		log.Println("recognition: closed network")
		e.Enabled = false
	}
}

// Model identifies which descriptor space this extractor produces
func (e *DNNExtractor) Model() string {
	return embedding.ModelArcFace
}

// ExtractRegion crops the face region out of img, runs the recognition
// network, and returns a unit-length descriptor. A disabled extractor or an
// empty region returns (nil, nil): the face stays descriptor-less.
func (e *DNNExtractor) ExtractRegion(img image.Image, region image.Rectangle) (*embedding.Descriptor, error) {
	if e == nil || !e.Enabled {
		return nil, nil
	}
	region = region.Intersect(img.Bounds())
	if region.Empty() {
		return nil, nil
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("recognition: failed to convert image: %w", err)
	}
	defer mat.Close()

	faceRegion := mat.Region(region)
	defer faceRegion.Close()

	vector := e.extract(faceRegion)
	if len(vector) == 0 {
		return nil, nil
	}

	desc, err := embedding.NewDescriptor(embedding.ModelArcFace, vector)
	if err != nil {
		return nil, fmt.Errorf("recognition: unexpected output length %d: %w", len(vector), err)
	}
	return &desc, nil
}

// extract runs the network over one cropped face and returns the raw
// embedding, L2-normalized
func (e *DNNExtractor) extract(faceRegion gocv.Mat) []float32 {
	if faceRegion.Empty() {
		return nil
	}

	resized := gocv.NewMat()
	gocv.Resize(faceRegion, &resized, image.Pt(e.InputSizeW, e.InputSizeH), 0, 0, gocv.InterpolationLinear)
	defer resized.Close()

	// ArcFace expects pixel values scaled to [0,1]
	blob := gocv.BlobFromImage(resized, 1.0/255.0, image.Pt(e.InputSizeW, e.InputSizeH), gocv.NewScalar(0, 0, 0, 0), false, false)
	defer blob.Close()

	e.Net.SetInput(blob, "")
	output := e.Net.Forward("")
	defer output.Close()

	if len(output.Size()) == 0 {
		return nil
	}

	flattened := output.Reshape(1, 1)
	defer flattened.Close()

	vector := make([]float32, flattened.Cols())
	for i := range vector {
		vector[i] = flattened.GetFloatAt(0, i)
	}

	return embedding.Normalize(vector)
}
