package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordUploadBatchCountsOnlyAccepted(t *testing.T) {
	files := testutil.ToFloat64(uploadFilesTotal)
	bytes := testutil.ToFloat64(uploadBytesTotal)

	RecordUploadBatch("accepted", 3, 300)
	RecordUploadBatch("rejected", 2, 200)

	require.Equal(t, files+3, testutil.ToFloat64(uploadFilesTotal))
	require.Equal(t, bytes+300, testutil.ToFloat64(uploadBytesTotal))
}

func TestRecordCompensation(t *testing.T) {
	before := testutil.ToFloat64(compensationsTotal.WithLabelValues("error"))
	RecordCompensation(false)
	require.Equal(t, before+1, testutil.ToFloat64(compensationsTotal.WithLabelValues("error")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordHTTPRequest(http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "eventdrop_http_requests_total"))
}
