package plot

import (
	"encoding/json"
	"testing"

	"github.com/raykavin/perfscope/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCurve_SingleSample(t *testing.T) {
	path := BuildCurve([]core.Sample{{Time: 0, Value: 50}}, 10)

	require.NotEmpty(t, path)
	assert.Equal(t, PathCommand{Op: MoveTo, X: -100, Y: 200}, path[0])
	assert.Equal(t, PathCommand{Op: LineTo, X: -100, Y: 0}, path[1])
	assert.Equal(t, PathCommand{Op: LineTo, X: 0, Y: 0}, path[2])

	tail := path[len(path)-4:]
	assert.Equal(t, Path{
		{Op: LineTo, X: 0, Y: 100},
		{Op: LineTo, X: 200, Y: 100},
		{Op: LineTo, X: 200, Y: 200},
		{Op: ClosePath},
	}, tail)

	assert.Equal(t, "M-100 200 L-100 0 L0 0 L0 100 L200 100 L200 200 Z", path.String())
}

func TestBuildCurve_Scaling(t *testing.T) {
	samples := []core.Sample{{Time: 0, Value: 10}, {Time: 5, Value: 40}, {Time: 10, Value: 20}}
	path := BuildCurve(samples, 20)

	assert.Equal(t, [][2]float64{
		{-100, 200},
		{-100, 75},
		{0, 75},
		{25, 0},
		{50, 50},
		{50, 100},
		{200, 100},
		{200, 200},
	}, path.Points())
}

func TestBuildCurve_Deterministic(t *testing.T) {
	samples := []core.Sample{{Time: 0, Value: 1}, {Time: 3, Value: 9}, {Time: 4, Value: 2}}
	assert.Equal(t, BuildCurve(samples, 8), BuildCurve(samples, 8))
}

func TestBuildCurve_ZeroValues(t *testing.T) {
	path := BuildCurve([]core.Sample{{Time: 0, Value: 0}, {Time: 1, Value: 0}}, 2)
	for _, point := range path.Points()[1:4] {
		assert.Equal(t, 100.0, point[1])
	}
}

func TestBuildCurve_Empty(t *testing.T) {
	path := BuildCurve(nil, 10)
	assert.Equal(t, "M-100 200 L-100 100 L200 100 L200 200 Z", path.String())
}

func TestBuildCurve_ZeroDuration(t *testing.T) {
	path := BuildCurve([]core.Sample{{Time: 0, Value: 5}, {Time: 3, Value: 10}}, 0)
	for _, point := range path.Points()[2:4] {
		assert.Equal(t, 0.0, point[0])
	}
}

func TestBuildCurves(t *testing.T) {
	groups := []core.SampleGroup{
		{ID: "upload", Samples: []core.Sample{{Time: 0, Value: 1}}},
		{ID: "download"},
	}
	curves := BuildCurves(groups, 4)
	require.Len(t, curves, 2)
	assert.Equal(t, BuildCurve(nil, 4), curves[1])
}

func TestPath_MarshalJSON(t *testing.T) {
	encoded, err := json.Marshal(map[string]Path{"d": BuildCurve(nil, 1)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"M-100 200 L-100 100 L200 100 L200 200 Z"}`, string(encoded))
}

func TestParsePath(t *testing.T) {
	path := BuildCurve([]core.Sample{{Time: 0, Value: 10}, {Time: 4, Value: 2.5}}, 8)

	parsed, err := ParsePath(path.String())
	require.NoError(t, err)
	assert.Equal(t, path, parsed)

	var decoded []Path
	require.NoError(t, json.Unmarshal([]byte(`["M-100 200 L200 100 Z"]`), &decoded))
	assert.Equal(t, []Path{{{Op: MoveTo, X: -100, Y: 200}, {Op: LineTo, X: 200, Y: 100}, {Op: ClosePath}}}, decoded)

	for _, broken := range []string{"C1 2", "M1", "Mx 2", "M1 y"} {
		_, err := ParsePath(broken)
		assert.Error(t, err, broken)
	}
}
