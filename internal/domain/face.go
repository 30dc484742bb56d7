package domain

// Gender is the categorical gender attribute reported by the face extractor.
type Gender int

const (
	// GenderFemale is the extractor's gender code 0.
	GenderFemale Gender = 0
	// GenderMale is the extractor's gender code 1.
	GenderMale Gender = 1
)

// String returns a human-readable gender label.
func (g Gender) String() string {
	if g == GenderMale {
		return "male"
	}
	return "female"
}

// FaceRecord is one detected face: identity embedding plus attributes.
// Embedding length is fixed by the extractor model (512 for the reference
// deployment) and must be constant within one deployment; embeddings
// produced by different extractor configurations must never be mixed.
type FaceRecord struct {
	Embedding []float32   `json:"embedding"`
	Gender    Gender      `json:"gender"`
	Age       *int        `json:"age,omitempty"`
	BBox      *[4]float64 `json:"bbox,omitempty"`
}
