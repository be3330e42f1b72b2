package trace

// Downsample reduces points for display to about maxPoints. Points are split
// into maxPoints/2 equal buckets and each bucket keeps its lowest and highest
// reading, so threshold crossings survive decimation. Toggle points are
// always kept. Order is preserved. dst is reused when it has enough capacity.
func Downsample(dst []Point, points []Point, maxPoints int) []Point {
	dst = dst[:0]
	switch {
	case maxPoints <= 0 || len(points) == 0:
		return dst
	case len(points) <= maxPoints:
		return append(dst, points...)
	case maxPoints == 1:
		return append(dst, points[0])
	}

	if cap(dst) < maxPoints {
		dst = make([]Point, 0, maxPoints)
	}

	buckets := maxPoints / 2
	n := len(points)
	for b := range buckets {
		lo, hi := b*n/buckets, (b+1)*n/buckets
		minIdx, maxIdx := -1, -1
		for i := lo; i < hi; i++ {
			p := points[i]
			if p.Toggle {
				continue
			}
			if minIdx < 0 || p.Value < points[minIdx].Value {
				minIdx = i
			}
			if maxIdx < 0 || p.Value > points[maxIdx].Value {
				maxIdx = i
			}
		}
		for i := lo; i < hi; i++ {
			if points[i].Toggle || i == minIdx || i == maxIdx {
				dst = append(dst, points[i])
			}
		}
	}
	return dst
}
