package observability

import (
	"testing"
	"time"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	RecordTransferComplete(4096, 12*time.Millisecond)
	RecordTransferFailed()
}
