package optional

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	CaseID Value[string] `json:"case_id"`
	Notes  Value[string] `json:"notes"`
	Serial Value[string] `json:"serial_number"`
}

func TestValueUnmarshalJSON(t *testing.T) {
	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"case_id":"C-1","notes":null}`), &p))

	assert.True(t, p.CaseID.Set)
	require.NotNil(t, p.CaseID.Value)
	assert.Equal(t, "C-1", *p.CaseID.Value)

	assert.True(t, p.Notes.IsNull())
	assert.False(t, p.Serial.Set)
}

func TestValueApply(t *testing.T) {
	existing := "old"
	dst := &existing

	Value[string]{}.Apply(&dst)
	require.NotNil(t, dst)
	assert.Equal(t, "old", *dst)

	Of("new").Apply(&dst)
	require.NotNil(t, dst)
	assert.Equal(t, "new", *dst)

	Null[string]().Apply(&dst)
	assert.Nil(t, dst)
}

func TestValueOr(t *testing.T) {
	assert.Equal(t, "fallback", Value[string]{}.Or("fallback"))
	assert.Equal(t, "fallback", Null[string]().Or("fallback"))
	assert.Equal(t, "x", Of("x").Or("fallback"))
}
