package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_Defaults(t *testing.T) {
	s := Schema{KeepCols: []string{"GEOID", "NAME", "STATEFP"}}.withDefaults()

	assert.Equal(t, "GEOID", s.MatchingVar)
	assert.Equal(t, []string{"NAME", "STATEFP"}, s.KeepCols)
	assert.Equal(t,
		[]string{"GEOID", "NAME", "STATEFP", "coords", "duration", "geometry"},
		s.columns())
}

func TestSchema_CustomMatchingVar(t *testing.T) {
	s := Schema{MatchingVar: "tract_id", KeepCols: []string{"NAME"}}.withDefaults()

	assert.Equal(t, []string{"tract_id", "NAME", "coords", "duration", "geometry"}, s.columns())
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"GEOID"`, quoteIdent("GEOID"))
	assert.Equal(t, `"na""me"`, quoteIdent(`na"me`))
}

func TestOpen_Dispatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	led, err := Open(ctx, filepath.Join(dir, "out.db"), Schema{})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteLedger{}, led)
	require.NoError(t, led.Close())

	led, err = Open(ctx, filepath.Join(dir, "out.sqlite3"), Schema{})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteLedger{}, led)
	require.NoError(t, led.Close())

	led, err = Open(ctx, filepath.Join(dir, "out.csv"), Schema{})
	require.NoError(t, err)
	assert.IsType(t, &CSVLedger{}, led)
	require.NoError(t, led.Close())
}
