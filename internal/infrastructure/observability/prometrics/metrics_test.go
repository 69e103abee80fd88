package prometrics

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounter_RegistersOnceAndAdds(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New("", "", reg)

	c1 := r.Counter("usecase_requests_total", "help", "use_case", "outcome")
	c2 := r.Counter("usecase_requests_total", "help", "use_case", "outcome")

	c1.Add(1, observability.L("use_case", "store.login"), observability.L("outcome", "success"))
	c2.Add(2, observability.L("use_case", "store.login"), observability.L("outcome", "success"))

	cv, _ := r.counters.Load("usecase_requests_total")
	got := testutil.ToFloat64(cv.(*prometheus.CounterVec).WithLabelValues("store.login", "success"))
	assert.Equal(t, 3.0, got)
}

func TestHistogram_DefaultBuckets(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New("shop", "", reg)

	h := r.Histogram("usecase_duration_seconds", "help", nil, "use_case")
	h.Observe(0.2, observability.L("use_case", "store.checkout"))

	count, err := testutil.GatherAndCount(reg, "shop_usecase_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}
