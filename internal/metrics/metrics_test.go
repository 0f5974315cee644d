package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCompose(t *testing.T) {
	before := testutil.ToFloat64(ComposeTotal.WithLabelValues("manual", ResultOK))
	RecordCompose("manual", ResultOK, 120*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(ComposeTotal.WithLabelValues("manual", ResultOK)))
}

func TestRecordFontFallback(t *testing.T) {
	before := testutil.ToFloat64(FontFallbackTotal)
	RecordFontFallback()
	assert.Equal(t, before+1, testutil.ToFloat64(FontFallbackTotal))
}

func TestSetAssetsReady(t *testing.T) {
	SetAssetsReady(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(AssetsReady))
	SetAssetsReady(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(AssetsReady))
}
