package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Metrics are package globals, so tests compare deltas rather than absolute values.

func TestRecordOutcome(t *testing.T) {
	before := testutil.ToFloat64(RecordsTotal.WithLabelValues(OutcomePartial))
	RecordOutcome(OutcomePartial, 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(RecordsTotal.WithLabelValues(OutcomePartial)))
}

func TestRecordEntityWrite(t *testing.T) {
	okBefore := testutil.ToFloat64(EntityWritesTotal.WithLabelValues("genre", "ok"))
	failedBefore := testutil.ToFloat64(EntityWritesTotal.WithLabelValues("genre", "failed"))

	RecordEntityWrite("genre", false)
	RecordEntityWrite("genre", false)
	RecordEntityWrite("genre", true)

	assert.Equal(t, okBefore+2, testutil.ToFloat64(EntityWritesTotal.WithLabelValues("genre", "ok")))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(EntityWritesTotal.WithLabelValues("genre", "failed")))
}

func TestRecordResolution(t *testing.T) {
	before := testutil.ToFloat64(DimensionResolutionsTotal.WithLabelValues("country", SourceInserted))
	RecordResolution("country", SourceInserted)
	assert.Equal(t, before+1, testutil.ToFloat64(DimensionResolutionsTotal.WithLabelValues("country", SourceInserted)))
}

func TestServe(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, ServerConfig{Addr: addr, Version: "test"}, zap.NewNop()) }()

	RecordOutcome(OutcomeWritten, time.Millisecond)

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	assert.True(t, strings.Contains(body, "tmdb_ingest_records_total"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
