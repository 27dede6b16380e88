package plot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/raykavin/perfscope/pkg/core"
	"github.com/raykavin/perfscope/pkg/metric"
)

// Curve geometry lives in a 0-100 box. The anchors sit outside of it so the
// edges of the filled area never show inside the clip rectangle.
const (
	curveLeft     = -100.0
	curveRight    = 200.0
	curveBaseline = 100.0
	curveBottom   = 200.0
)

// PathOp is a single drawing instruction of a Path
type PathOp int8

const (
	MoveTo PathOp = iota
	LineTo
	ClosePath
)

// PathCommand is one step of a Path, X and Y are ignored for ClosePath
type PathCommand struct {
	Op PathOp
	X  float64
	Y  float64
}

// Path is a closed silhouette under a sample curve, suitable for a gradient
// fill by a vector renderer
type Path []PathCommand

// Points returns the coordinates of every MoveTo and LineTo in order
func (p Path) Points() [][2]float64 {
	points := make([][2]float64, 0, len(p))
	for _, command := range p {
		if command.Op != ClosePath {
			points = append(points, [2]float64{command.X, command.Y})
		}
	}
	return points
}

// String renders the path as an SVG path data attribute
func (p Path) String() string {
	var builder strings.Builder
	for i, command := range p {
		if i > 0 {
			builder.WriteByte(' ')
		}

		switch command.Op {
		case MoveTo:
			builder.WriteByte('M')
		case LineTo:
			builder.WriteByte('L')
		case ClosePath:
			builder.WriteByte('Z')
			continue
		}

		builder.WriteString(formatCoordinate(command.X))
		builder.WriteByte(' ')
		builder.WriteString(formatCoordinate(command.Y))
	}
	return builder.String()
}

// MarshalText implements encoding.TextMarshaler so paths travel as SVG data
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Path) UnmarshalText(text []byte) error {
	parsed, err := ParsePath(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePath reads SVG path data made of absolute M, L and Z commands with
// space separated coordinates, as written by Path.String
func ParsePath(data string) (Path, error) {
	fields := strings.Fields(data)
	path := make(Path, 0, len(fields)/2+1)

	for i := 0; i < len(fields); {
		token := fields[i]

		var op PathOp
		switch token[0] {
		case 'Z':
			path = append(path, PathCommand{Op: ClosePath})
			i++
			continue
		case 'M':
			op = MoveTo
		case 'L':
			op = LineTo
		default:
			return nil, fmt.Errorf("unsupported path command %q", token)
		}

		if i+1 >= len(fields) {
			return nil, fmt.Errorf("path command %q without y coordinate", token)
		}
		x, err := strconv.ParseFloat(token[1:], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid x coordinate in %q: %w", token, err)
		}
		y, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid y coordinate %q: %w", fields[i+1], err)
		}

		path = append(path, PathCommand{Op: op, X: x, Y: y})
		i += 2
	}

	return path, nil
}

func formatCoordinate(value float64) string {
	if value == 0 {
		value = 0
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// BuildCurve converts samples into a closed path over a recording of the
// given duration. Time maps to x in [0, 100], values map to y with the
// group maximum at 0 and zero at 100.
//
// An empty group renders the flat baseline silhouette. A non-positive
// duration collapses every point onto x = 0.
func BuildCurve(samples []core.Sample, duration float64) Path {
	path := Path{{Op: MoveTo, X: curveLeft, Y: curveBottom}}

	if len(samples) == 0 {
		return append(path,
			PathCommand{Op: LineTo, X: curveLeft, Y: curveBaseline},
			PathCommand{Op: LineTo, X: curveRight, Y: curveBaseline},
			PathCommand{Op: LineTo, X: curveRight, Y: curveBottom},
			PathCommand{Op: ClosePath},
		)
	}

	highest := metric.HighestValue(samples)
	if highest <= 0 {
		highest = 1
	}

	var lastX float64
	for i, sample := range samples {
		x := 0.0
		if duration > 0 {
			x = 100 * sample.Time / duration
		}
		y := 100 - 100*metric.ValueAtTime(samples, sample.Time)/highest

		// Flat left edge down to the anchor
		if i == 0 {
			path = append(path, PathCommand{Op: LineTo, X: curveLeft, Y: y})
		}

		path = append(path, PathCommand{Op: LineTo, X: x, Y: y})
		lastX = x
	}

	return append(path,
		PathCommand{Op: LineTo, X: lastX, Y: curveBaseline},
		PathCommand{Op: LineTo, X: curveRight, Y: curveBaseline},
		PathCommand{Op: LineTo, X: curveRight, Y: curveBottom},
		PathCommand{Op: ClosePath},
	)
}

// BuildCurves builds one path per group, aligned with the groups
func BuildCurves(groups []core.SampleGroup, duration float64) []Path {
	curves := make([]Path, len(groups))
	for i, group := range groups {
		curves[i] = BuildCurve(group.Samples, duration)
	}
	return curves
}
