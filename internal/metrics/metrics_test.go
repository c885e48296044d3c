package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/teslashibe/blurry-classifier/pkg/blur"
)

func TestRecorder(t *testing.T) {
	r := New()
	model := blur.ClassifierVariant.Model

	r.ObserveResult(model, &blur.Result{Score: 10, Threshold: 100, Blurry: true})
	r.ObserveResult(model, &blur.Result{Score: 500, Threshold: 100})
	r.ObserveResult(model, &blur.Result{Score: 5, Threshold: 100, Blurry: true})
	r.ObserveError("camera", errors.New("boom"))
	r.ObserveArchived()

	if got := testutil.ToFloat64(r.classifications.WithLabelValues(model, "blurry")); got != 2 {
		t.Errorf("expected 2 blurry, got %v", got)
	}
	if got := testutil.ToFloat64(r.classifications.WithLabelValues(model, "sharp")); got != 1 {
		t.Errorf("expected 1 sharp, got %v", got)
	}
	if got := testutil.ToFloat64(r.errors.WithLabelValues("camera")); got != 1 {
		t.Errorf("expected 1 camera error, got %v", got)
	}
	if got := testutil.ToFloat64(r.archived); got != 1 {
		t.Errorf("expected 1 archived frame, got %v", got)
	}
	if n := testutil.CollectAndCount(r.variance, "blurry_laplacian_variance"); n != 1 {
		t.Errorf("expected one variance series, got %d", n)
	}
}
