package blur

import "fmt"

// Variant parameterizes the classifier. The two shipped variants differ
// only in default threshold and reported confidence.
type Variant struct {
	// Name is the short name used in config files.
	Name string `json:"name"`

	// Model is the fully qualified model triplet.
	Model string `json:"model"`

	// DefaultThreshold applies until a configuration sets blurry_threshold.
	DefaultThreshold float64 `json:"default_threshold"`

	// Confidence is reported on every "blurry" classification. It is a
	// constant, not derived from the score.
	Confidence float64 `json:"confidence"`
}

// Shipped variants.
var (
	ClassifierVariant = Variant{
		Name:             "classifier",
		Model:            "viam:blurry-classifier:blurry-classifier",
		DefaultThreshold: 100.0,
		Confidence:       1.0,
	}

	DetectorVariant = Variant{
		Name:             "detector",
		Model:            "viam:blurry-classifier:blurry-detector",
		DefaultThreshold: 1000.0,
		Confidence:       0.5,
	}
)

var variants = []Variant{ClassifierVariant, DetectorVariant}

// LookupVariant finds a variant by short name or model triplet.
func LookupVariant(name string) (Variant, error) {
	for _, v := range variants {
		if v.Name == name || v.Model == name {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("blur: unknown model %q", name)
}
