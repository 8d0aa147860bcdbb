package handler

import (
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/productcatalog/catalog/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "catalog_product_hits_total %d\n", snap.ProductHits)
	writeMetric(w, "catalog_products_created_total %d\n", snap.ProductsCreated)
	writeMetric(w, "catalog_products_updated_total %d\n", snap.ProductsUpdated)
	writeMetric(w, "catalog_products_deleted_total %d\n", snap.ProductsDeleted)

	writeMetric(w, "catalog_users_created_total %d\n", snap.UsersCreated)
	writeMetric(w, "catalog_users_updated_total %d\n", snap.UsersUpdated)
	writeMetric(w, "catalog_users_deleted_total %d\n", snap.UsersDeleted)

	writeMetric(w, "catalog_tokens_issued_total %d\n", snap.TokensIssued)
	writeLabeled(w, "catalog_auth_failures_total", "reason", snap.AuthFailures)
	writeMetric(w, "catalog_rate_limited_total %d\n", snap.RateLimited)

	writeLabeled(w, "catalog_notifications_total", "status", snap.Notifications)
	writeMetric(w, "catalog_notification_duration_seconds_count %d\n", snap.NotificationDurationCount)
	writeMetric(w, "catalog_notification_duration_seconds_sum %.6f\n", float64(snap.NotificationDurationTotalNs)/1e9)
}

// writeLabeled emits one sample per label value, sorted for stable output.
func writeLabeled(w io.Writer, name, label string, values map[string]uint64) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeMetric(w, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeMetric(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
