package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-dipend/framework/container"
	"github.com/km-arc/go-dipend/framework/dependency"
	"github.com/km-arc/go-dipend/framework/errs"
)

var _ container.Observer = (*Collector)(nil)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCollector_ObservesContainer(t *testing.T) {
	m := New()
	c := container.New(container.WithObserver(m))

	require.NoError(t, c.AddTransientBuilder("x", func() (any, error) { return 1, nil }))
	_, err := c.GetRequiredDependency(context.Background(), "x")
	require.NoError(t, err)
	_, err = c.GetRequiredDependency(context.Background(), "ghost")
	require.Error(t, err)

	body := scrape(t, m)
	assert.Contains(t, body, `dipend_dependencies_added_total{lifecycle="singleton"} 1`)
	assert.Contains(t, body, `dipend_dependencies_added_total{lifecycle="transient"} 1`)
	assert.Contains(t, body, `dipend_resolutions_total{lifecycle="transient",outcome="ok"} 1`)
	assert.Contains(t, body, `dipend_resolutions_total{lifecycle="none",outcome="missing"} 1`)
	assert.Contains(t, body, `dipend_registrations 2`)
	assert.Contains(t, body, "dipend_resolution_duration_seconds_bucket")
}

func TestCollector_RegistrationsTrackLiveCount(t *testing.T) {
	m := New()
	c := container.New(container.WithObserver(m))
	builder := func() (any, error) { return 1, nil }

	require.NoError(t, c.AddMappedTransientBuilder("shape", "circle", builder))
	require.NoError(t, c.AddMappedTransientBuilder("shape", "circle", builder))
	assert.Contains(t, scrape(t, m), "dipend_registrations 2\n", "overwrite keeps the count")

	require.NoError(t, c.DeleteDependency("shape", "circle"))
	assert.Contains(t, scrape(t, m), "dipend_registrations 1\n")

	require.NoError(t, c.AddTransientBuilder("x", builder))
	c.Reset()
	body := scrape(t, m)
	assert.Contains(t, body, "dipend_registrations 1\n")
	assert.Contains(t, body, `dipend_dependencies_added_total{lifecycle="transient"} 3`)
}

func TestOutcome(t *testing.T) {
	cases := map[string]error{
		"ok":                nil,
		"missing":           errs.MissingDependency("a"),
		"cyclic":            errs.CyclicDependencies("a", "b"),
		"invalid_lifecycle": errs.InvalidLifecycle("a", "pooled"),
		"unconstructable":   errs.CanNotConstructDependency("a"),
		"error":             errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, outcome(err))
	}
}

func TestCollector_DirectCalls(t *testing.T) {
	m := New()
	m.DependencyResolved("id", dependency.Context, time.Millisecond, errs.CyclicDependencies("id"))

	body := scrape(t, m)
	assert.Contains(t, body, `dipend_resolutions_total{lifecycle="context",outcome="cyclic"} 1`)
}
