//go:build gocv

package blur

import (
	"fmt"

	"github.com/teslashibe/blurry-classifier/pkg/camera"
	"gocv.io/x/gocv"
)

// DefaultScorer returns the OpenCV scorer.
func DefaultScorer() Scorer {
	return OpenCVScorer{}
}

// OpenCVScorer computes the Laplacian variance with OpenCV. Results match
// LaplacianScorer up to decoder differences.
type OpenCVScorer struct{}

// Score decodes img as grayscale and returns the variance of its CV_64F
// Laplacian.
func (OpenCVScorer) Score(img *camera.Image) (float64, error) {
	if err := checkMimeType(img); err != nil {
		return 0, err
	}

	mat, err := gocv.IMDecode(img.Data, gocv.IMReadGrayScale)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer mat.Close()

	if mat.Empty() {
		return 0, fmt.Errorf("%w: empty image", ErrDecode)
	}

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(mat, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	mean := gocv.NewMat()
	defer mean.Close()
	stddev := gocv.NewMat()
	defer stddev.Close()
	gocv.MeanStdDev(lap, &mean, &stddev)

	s := stddev.GetDoubleAt(0, 0)
	return s * s, nil
}
