package optional

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  Field[string]  `json:"name"`
	Width Field[float64] `json:"width"`
}

func TestUnmarshalTracksPresence(t *testing.T) {
	var s sample
	require.NoError(t, json.Unmarshal([]byte(`{"width":0}`), &s))
	require.False(t, s.Name.IsSet())
	w, ok := s.Width.Get()
	require.True(t, ok, "zero value that was sent must count as set")
	require.Equal(t, 0.0, w)
}

func TestExplicitNullIsUnset(t *testing.T) {
	var s sample
	require.NoError(t, json.Unmarshal([]byte(`{"name":null}`), &s))
	require.False(t, s.Name.IsSet())
}

func TestUnmarshalTypeMismatch(t *testing.T) {
	var s sample
	require.Error(t, json.Unmarshal([]byte(`{"width":"wide"}`), &s))
}

func TestPutAndRequire(t *testing.T) {
	s := sample{Name: Of("")}
	m := map[string]any{}
	Put(m, "name", s.Name)
	Put(m, "width", s.Width)
	require.Equal(t, map[string]any{"name": ""}, m)

	var missing []string
	missing = Require(missing, "name", s.Name)
	missing = Require(missing, "width", s.Width)
	require.Equal(t, []string{"width"}, missing)
}

func TestMarshal(t *testing.T) {
	b, err := json.Marshal(sample{Name: Of("A")})
	require.NoError(t, err)
	require.JSONEq(t, `{"name":"A","width":null}`, string(b))
	require.Equal(t, 3.5, None[float64]().Or(3.5))
}
