package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(leadSubmissions.WithLabelValues("timeout"))
	RecordSubmission("timeout")
	assert.Equal(t, before+1, testutil.ToFloat64(leadSubmissions.WithLabelValues("timeout")))

	before = testutil.ToFloat64(auxiliaryFailures.WithLabelValues("notify"))
	RecordAuxiliaryFailure("notify")
	RecordAuxiliaryFailure("notify")
	assert.Equal(t, before+2, testutil.ToFloat64(auxiliaryFailures.WithLabelValues("notify")))

	before = testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/api/leads", "201"))
	ObserveHTTP("POST", "/api/leads", "201", 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/api/leads", "201")))
}

func TestHistograms(t *testing.T) {
	ObserveStoreOperation("create", "leads", time.Millisecond)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(storeOperationDuration), 1)
}
