package fanout

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateJSON(t *testing.T) {
	tests := []struct {
		state State
		name  string
	}{
		{StateIdle, `"idle"`},
		{StateLoading, `"loading"`},
		{StateReady, `"ready"`},
		{StateIncomplete, `"incomplete"`},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			b, err := json.Marshal(tt.state)
			require.NoError(t, err)
			assert.Equal(t, tt.name, string(b))

			var got State
			require.NoError(t, json.Unmarshal(b, &got))
			assert.Equal(t, tt.state, got)
		})
	}
}

func TestStateJSONInsideStruct(t *testing.T) {
	type status struct {
		State State `json:"state"`
	}
	var s status
	require.NoError(t, json.Unmarshal([]byte(`{"state":"incomplete"}`), &s))
	assert.Equal(t, StateIncomplete, s.State)
}

func TestStateJSONRejectsUnknown(t *testing.T) {
	var s State
	assert.Error(t, json.Unmarshal([]byte(`"finished"`), &s))
	assert.Error(t, json.Unmarshal([]byte(`2`), &s))
}
