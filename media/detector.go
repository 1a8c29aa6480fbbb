package media

import (
	"image"
	"log"

	"gocv.io/x/gocv"
)

// DNNFaceDetector runs an SSD face detection network via OpenCV's DNN module
type DNNFaceDetector struct {
	Net     gocv.Net
	Enabled bool

	// configuration parameters used during detection
	InputSizeW    int
	InputSizeH    int
	ScaleFactor   float64
	MeanVal       gocv.Scalar
	ConfThreshold float32
}

var _ FaceDetector = (*DNNFaceDetector)(nil)

// NewDNNFaceDetector loads the DNN model
func NewDNNFaceDetector(configPath, modelPath string, confThreshold float32) *DNNFaceDetector {
	if configPath == "" || modelPath == "" {
		log.Println("detection(dnn): config or model path is empty, disabling DNN detector")
		return &DNNFaceDetector{Enabled: false}
	}

	net := gocv.ReadNet(modelPath, configPath)
	if net.Empty() {
		log.Printf("detection(dnn): ERROR loading network model: config=%s, model=%s", configPath, modelPath)
		return &DNNFaceDetector{Enabled: false}
	}
	log.Printf("detection(dnn): successfully loaded face detection model")

	cudaBackendErr := net.SetPreferableBackend(gocv.NetBackendCUDA)
	cudaTargetErr := net.SetPreferableTarget(gocv.NetTargetCUDA)

	if cudaBackendErr == nil && cudaTargetErr == nil {
		log.Println("detection(dnn): Set backend/target to CUDA")
	} else {
		if cudaBackendErr != nil {
			log.Printf("detection(dnn): CUDA Backend not available or failed: %v. Using default backend.", cudaBackendErr)
		}
		if cudaTargetErr != nil {
			log.Printf("detection(dnn): CUDA Target not available or failed: %v. Using default target.", cudaTargetErr)
		}

		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
		log.Println("detection(dnn): Set backend/target to CPU (Default)")
	}

	return &DNNFaceDetector{
		Net:           net,
		Enabled:       true,
		InputSizeW:    300,
		InputSizeH:    300,
		ScaleFactor:   1.0,
		MeanVal:       gocv.NewScalar(104.0, 177.0, 123.0, 0),
		ConfThreshold: confThreshold,
	}
}

func (d *DNNFaceDetector) Close() {
	if d != nil && d.Enabled {
		d.Net.Close()
		log.Println("detection(dnn): closed network")
		d.Enabled = false
	}
}

// Detect runs face detection over a decoded image
func (d *DNNFaceDetector) Detect(img image.Image) ([]Detection, error) {
	if d == nil || !d.Enabled {
		return nil, nil
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	return d.detectMat(mat), nil
}

// detectMat runs face detection using the loaded DNN model
func (d *DNNFaceDetector) detectMat(img gocv.Mat) []Detection {
	if img.Empty() {
		return nil
	}

	imgHeight := float32(img.Rows())
	imgWidth := float32(img.Cols())

	blob := gocv.BlobFromImage(img, d.ScaleFactor, image.Pt(d.InputSizeW, d.InputSizeH), d.MeanVal, false, false)
	defer blob.Close()

	d.Net.SetInput(blob, "")
	detectionsMat := d.Net.Forward("")
	defer detectionsMat.Close()

	results := []Detection{}

	sizes := detectionsMat.Size()
	if len(sizes) < 3 {
		log.Printf("detection(dnn): Error - Output matrix dimensions too small to parse: %v", sizes)
		return results
	}

	numDetections := sizes[2]
	if numDetections == 0 {
		return results
	}

	// reshape the Mat to 2D: [N, 7] for easier access with GetFloatAt(row, col)
	detections2D := detectionsMat.Reshape(1, numDetections*sizes[3])
	detectionsData := detections2D.Reshape(1, numDetections)
	defer detectionsData.Close()

	for i := 0; i < numDetections; i++ {
		confidence := detectionsData.GetFloatAt(i, 2)
		if confidence <= d.ConfThreshold {
			continue
		}

		xMin := detectionsData.GetFloatAt(i, 3) * imgWidth
		yMin := detectionsData.GetFloatAt(i, 4) * imgHeight
		xMax := detectionsData.GetFloatAt(i, 5) * imgWidth
		yMax := detectionsData.GetFloatAt(i, 6) * imgHeight

		xMin = max(0, xMin)
		yMin = max(0, yMin)
		xMax = min(imgWidth, xMax)
		yMax = min(imgHeight, yMax)

		if xMax > xMin && yMax > yMin {
			results = append(results, Detection{
				Rect:       image.Rect(int(xMin), int(yMin), int(xMax), int(yMax)),
				Confidence: confidence,
			})
		}
	}

	return results
}
