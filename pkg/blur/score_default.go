//go:build !gocv

package blur

// DefaultScorer returns the pure-Go Laplacian scorer. Build with -tags gocv
// to score through OpenCV instead.
func DefaultScorer() Scorer {
	return LaplacianScorer{}
}
