package embedding

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

var (
	// ErrDimensionMismatch is returned when stored embedding bytes disagree
	// with the dimensionality registered for their model tag
	ErrDimensionMismatch = errors.New("embedding: data length does not match model dimensionality")

	// ErrUnknownModel is returned when decoding against an unregistered model tag
	ErrUnknownModel = errors.New("embedding: unknown model tag")

	// ErrNoUsableReference is returned when every supplied reference photo
	// failed to yield a descriptor
	ErrNoUsableReference = errors.New("embedding: no usable reference descriptor")
)

// Descriptor is a fixed-length face embedding vector tagged with the model
// that produced it. Descriptors from different model tags are never comparable.
type Descriptor struct {
	Model  string
	Vector []float32
}

var (
	modelMu   sync.RWMutex
	modelDims = map[string]int{
		ModelArcFace: 512,
		ModelGrid:    128,
	}
)

// Built-in model tags. ModelArcFace is the DNN embedding net, ModelGrid the
// classical block-histogram extractor.
const (
	ModelArcFace = "arcface"
	ModelGrid    = "grid"
)

// RegisterModel registers (or overrides) the expected vector dimensionality
// for a model tag
func RegisterModel(model string, dim int) error {
	if model == "" || dim <= 0 {
		return fmt.Errorf("embedding: invalid model registration %q/%d", model, dim)
	}
	modelMu.Lock()
	modelDims[model] = dim
	modelMu.Unlock()
	return nil
}

// ModelDim returns the registered dimensionality for a model tag
func ModelDim(model string) (int, bool) {
	modelMu.RLock()
	dim, ok := modelDims[model]
	modelMu.RUnlock()
	return dim, ok
}

// NewDescriptor validates the vector against the model registry
func NewDescriptor(model string, vector []float32) (Descriptor, error) {
	dim, ok := ModelDim(model)
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	if len(vector) != dim {
		return Descriptor{}, fmt.Errorf("%w: model %q expects %d values, got %d",
			ErrDimensionMismatch, model, dim, len(vector))
	}
	return Descriptor{Model: model, Vector: vector}, nil
}

// Encode converts the descriptor vector to a little-endian float32 BLOB
// suitable for storage. Decode inverts it bit-for-bit.
func (d Descriptor) Encode() []byte {
	if len(d.Vector) == 0 {
		return nil
	}

	data := make([]byte, len(d.Vector)*4) // 4 bytes per float32
	for i, val := range d.Vector {
		offset := i * 4
		bits := math.Float32bits(val)
		data[offset] = byte(bits)
		data[offset+1] = byte(bits >> 8)
		data[offset+2] = byte(bits >> 16)
		data[offset+3] = byte(bits >> 24)
	}
	return data
}

// Decode converts stored BLOB data back into a descriptor for the given model
// tag. The byte length must equal exactly 4x the registered dimensionality;
// anything else is surfaced as corrupt data, never truncated or reshaped.
func Decode(data []byte, model string) (Descriptor, error) {
	dim, ok := ModelDim(model)
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	if len(data) != dim*4 {
		return Descriptor{}, fmt.Errorf("%w: model %q expects %d bytes, got %d",
			ErrDimensionMismatch, model, dim*4, len(data))
	}

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		offset := i * 4
		bits := uint32(data[offset]) |
			uint32(data[offset+1])<<8 |
			uint32(data[offset+2])<<16 |
			uint32(data[offset+3])<<24
		vector[i] = math.Float32frombits(bits)
	}
	return Descriptor{Model: model, Vector: vector}, nil
}
