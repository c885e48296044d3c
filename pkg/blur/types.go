package blur

import "github.com/teslashibe/blurry-classifier/pkg/camera"

// ClassBlurry is the only label this service emits.
const ClassBlurry = "blurry"

// Classification is a labelled result. An empty list means "not blurry".
type Classification struct {
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
}

// Result carries the score behind a classification.
type Result struct {
	Score           float64          `json:"score"`
	Threshold       float64          `json:"threshold"`
	Blurry          bool             `json:"blurry"`
	Classifications []Classification `json:"classifications"`
}

// CaptureOptions selects what CaptureAllFromCamera returns.
type CaptureOptions struct {
	ReturnImage           bool
	ReturnClassifications bool
}

// Capture bundles a frame with its classification. Fields not requested
// are nil.
type Capture struct {
	Image  *camera.Image `json:"-"`
	Result *Result       `json:"result,omitempty"`
}

// Classifications returns the captured classifications, or nil when none
// were requested.
func (c *Capture) Classifications() []Classification {
	if c.Result == nil {
		return nil
	}
	return c.Result.Classifications
}

// Properties advertises which vision entry points are supported.
type Properties struct {
	ClassificationsSupported   bool `json:"classifications_supported"`
	DetectionsSupported        bool `json:"detections_supported"`
	ObjectPointCloudsSupported bool `json:"object_point_clouds_supported"`
}

// Detection is a labelled bounding box. This service never produces one.
type Detection struct {
	XMin       int     `json:"x_min"`
	YMin       int     `json:"y_min"`
	XMax       int     `json:"x_max"`
	YMax       int     `json:"y_max"`
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
}

// PointCloudObject is a segmented 3D object. This service never produces one.
type PointCloudObject struct {
	Label  string       `json:"label"`
	Points [][3]float64 `json:"points"`
}
