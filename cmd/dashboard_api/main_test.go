package main

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/aggregator"
)

func TestLogTodayAnomalies_WarnsOnCap(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	logTodayAnomalies(&aggregator.Result{Capped: []string{"consumption", "import_from_grid"}})

	require.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, log.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "import_from_grid", hook.LastEntry().Data["field"])
}

func TestLogTodayAnomalies_QuietWhenClean(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	logTodayAnomalies(&aggregator.Result{ValidCount: 1440})
	logTodayAnomalies(nil)

	assert.Empty(t, hook.AllEntries())
}
