package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func makePoints(n int) []Point {
	points := make([]Point, n)
	base := time.Now()
	for i := range points {
		points[i] = Point{Time: base.Add(time.Duration(i) * time.Second), Value: uint32(i)}
	}
	return points
}

func TestDownsample(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		maxPoints int
		wantLen   int
	}{
		{"fewer than max", 5, 10, 5},
		{"equal to max", 10, 10, 10},
		{"more than max", 100, 10, 10},
		{"empty", 0, 10, 0},
		{"zero max", 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := makePoints(tt.count)
			result := Downsample(nil, points, tt.maxPoints)
			assert.Len(t, result, tt.wantLen)
			if tt.wantLen > 0 {
				assert.Equal(t, points[0], result[0], "first point preserved")
			}
		})
	}
}

func TestDownsample_Decimation(t *testing.T) {
	result := Downsample(nil, makePoints(100), 4)
	values := make([]uint32, len(result))
	for i, p := range result {
		values[i] = p.Value
	}
	assert.Equal(t, []uint32{0, 49, 50, 99}, values)
}

func TestDownsample_KeepsPeaksAndToggles(t *testing.T) {
	points := makePoints(100)
	for i := range points {
		points[i].Value = 1000
	}
	points[37].Value = 2600
	points[60] = Point{Time: points[60].Time, Toggle: true, Active: true}

	result := Downsample(nil, points, 10)

	var peak, toggle bool
	for i, p := range result {
		if i > 0 {
			assert.False(t, p.Time.Before(result[i-1].Time), "order preserved")
		}
		peak = peak || p.Value == 2600
		toggle = toggle || p.Toggle
	}
	assert.True(t, peak, "spike survives decimation")
	assert.True(t, toggle, "toggle survives decimation")
	assert.LessOrEqual(t, len(result), 11)
}

func TestDownsample_ReusesDst(t *testing.T) {
	dst := make([]Point, 0, 20)
	points := makePoints(100)

	result := Downsample(dst, points, 10)
	assert.Len(t, result, 10)
	assert.Equal(t, 20, cap(result), "should reuse dst capacity")

	result2 := Downsample(result, makePoints(5), 10)
	assert.Len(t, result2, 5)
	assert.Equal(t, 20, cap(result2))
}
