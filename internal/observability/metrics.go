package observability

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MIntentFallbacks         MetricKey = "intent_fallback_total"
)

// MetricSpec describes how a metric key is registered with a backend.
type MetricSpec struct {
	Key    MetricKey
	Help   string
	Labels []string
}

// CounterSpecs lists every counter the application records.
var CounterSpecs = []MetricSpec{
	{Key: MUsecaseRequests, Help: "Total number of use case invocations.", Labels: []string{"use_case", "outcome"}},
	{Key: MHTTPRequests, Help: "Total number of HTTP requests served.", Labels: []string{"method", "route", "status"}},
	{Key: MExternalRequests, Help: "Total number of calls to external collaborators.", Labels: []string{"peer", "endpoint", "outcome"}},
	{Key: MIntentFallbacks, Help: "Classifier outputs downgraded to the default action.", Labels: []string{"reason"}},
}

// HistogramSpecs lists every histogram the application records.
var HistogramSpecs = []MetricSpec{
	{Key: MUsecaseDuration, Help: "Duration of use case execution in seconds.", Labels: []string{"use_case"}},
	{Key: MHTTPRequestDuration, Help: "Duration of HTTP requests in seconds.", Labels: []string{"method", "route", "status"}},
	{Key: MExternalRequestDuration, Help: "Duration of calls to external collaborators in seconds.", Labels: []string{"peer", "endpoint"}},
}
