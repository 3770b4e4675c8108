package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/isochroner/internal/config"
)

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"NAME", "STATEFP"}, splitAndTrim("NAME,STATEFP"))
	assert.Equal(t, []string{"NAME", "STATEFP"}, splitAndTrim(" NAME , STATEFP "))
	assert.Equal(t, []string{"NAME"}, splitAndTrim("NAME,,"))
	assert.Nil(t, splitAndTrim(""))
	assert.Nil(t, splitAndTrim(" , "))
}

func TestBatchOptions_ConfigValues(t *testing.T) {
	cfg = &config.Config{}
	cfg.Batch.Durations = []int{15, 30}
	cfg.Batch.KeepCols = []string{"NAME"}
	cfg.Batch.MatchingVar = "GEOID"
	cfg.Batch.BatchSize = 10
	cfg.Batch.StdDevs = 2
	cfg.Batch.Tolerance = 2
	cfg.Batch.SwapXY = true

	// A command without the batch flags registered resolves everything
	// from config.
	opts := batchOptions(&cobra.Command{})

	assert.Equal(t, []int{15, 30}, opts.Durations)
	assert.Equal(t, []string{"NAME"}, opts.KeepCols)
	assert.Equal(t, "GEOID", opts.MatchingVar)
	assert.Equal(t, 10, opts.BatchSize)
	assert.True(t, opts.SwapXY)
}

func TestBatchOptions_FlagsOverrideConfig(t *testing.T) {
	cfg = &config.Config{}
	cfg.Batch.Durations = []int{15}
	cfg.Batch.MatchingVar = "GEOID"
	cfg.Batch.BatchSize = 5

	require.NoError(t, batchCmd.Flags().Set("durations", "25,50"))
	require.NoError(t, batchCmd.Flags().Set("matching-var", "TRACTCE"))
	require.NoError(t, batchCmd.Flags().Set("batch-size", "3"))
	require.NoError(t, batchCmd.Flags().Set("keep-cols", "NAME, STATEFP"))

	opts := batchOptions(batchCmd)

	assert.Equal(t, []int{25, 50}, opts.Durations)
	assert.Equal(t, "TRACTCE", opts.MatchingVar)
	assert.Equal(t, 3, opts.BatchSize)
	assert.Equal(t, []string{"NAME", "STATEFP"}, opts.KeepCols)
}

func TestRoutingKey_FromConfig(t *testing.T) {
	cfg = &config.Config{}
	cfg.Routing.Key = "config-token"

	key, err := routingKey(&cobra.Command{})
	require.NoError(t, err)
	assert.Equal(t, "config-token", key)
}

func TestRoutingKey_FlagWins(t *testing.T) {
	cfg = &config.Config{}
	cfg.Routing.Key = "config-token"

	require.NoError(t, batchCmd.Flags().Set("key", "flag-token"))
	key, err := routingKey(batchCmd)
	require.NoError(t, err)
	assert.Equal(t, "flag-token", key)
}

func TestRoutingKey_Missing(t *testing.T) {
	cfg = &config.Config{}

	_, err := routingKey(&cobra.Command{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ISOCHRONER_ROUTING_KEY")
}
