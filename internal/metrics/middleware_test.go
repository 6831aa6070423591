package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/jobs/{job_id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/resolve", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	ts := httptest.NewServer(r)
	defer ts.Close()

	okBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200"))
	badBefore := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "400"))
	jobBefore := durationSamples(t, "GET", "/jobs/{job_id}")
	unknownBefore := durationSamples(t, "GET", "unknown")

	get(t, ts.URL+"/jobs/0192f3a4-aaaa")
	get(t, ts.URL+"/jobs/0192f3a4-bbbb")
	get(t, ts.URL+"/no/such/route")
	resp, err := http.Post(ts.URL+"/resolve", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	if errInner := resp.Body.Close(); errInner != nil {
		t.Log(errInner)
	}

	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")) - okBefore; val != 2 {
		t.Errorf("Expected two 200 responses for GET, got %f", val)
	}
	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "400")) - badBefore; val != 1 {
		t.Errorf("Expected one 400 response for POST /resolve, got %f", val)
	}
	// Job ids collapse into the route pattern instead of one series per job.
	if val := durationSamples(t, "GET", "/jobs/{job_id}") - jobBefore; val != 2 {
		t.Errorf("Expected two samples for /jobs/{job_id}, got %d", val)
	}
	if val := durationSamples(t, "GET", "unknown") - unknownBefore; val != 1 {
		t.Errorf("Expected unmatched path under the unknown route, got %d", val)
	}
}

func get(t *testing.T, url string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	if errInner := resp.Body.Close(); errInner != nil {
		t.Log(errInner)
	}
}

// durationSamples reports how many requests the duration histogram has seen
// for method and route.
func durationSamples(t *testing.T, method, route string) uint64 {
	t.Helper()
	reg := prometheus.NewRegistry()
	reg.MustRegister(httpRequestDurationSeconds)
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["method"] == method && labels["route"] == route {
				return metric.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}
