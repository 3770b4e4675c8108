package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeepColumns_RemovesMatchingVar(t *testing.T) {
	keep := KeepColumns("GEOID", []string{"GEOID", "NAME", "ALAND"})
	assert.Equal(t, []string{"NAME", "ALAND"}, keep)
}

func TestKeepColumns_NoMatchingVarPresent(t *testing.T) {
	keep := KeepColumns("GEOID", []string{"NAME", "ALAND"})
	assert.Equal(t, []string{"NAME", "ALAND"}, keep)
}

func TestKeepColumns_Empty(t *testing.T) {
	assert.Empty(t, KeepColumns("GEOID", nil))
	assert.Empty(t, KeepColumns("GEOID", []string{"GEOID"}))
}
