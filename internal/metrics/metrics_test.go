package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestProgressHistogramIsOneSeries(t *testing.T) {
	for _, pct := range []float64{0, 35, 50, 100} {
		ProgressHistogram.Observe(pct)
	}
	assert.Equal(t, 1, testutil.CollectAndCount(ProgressHistogram, "subcourse_progress_percent"))
}
