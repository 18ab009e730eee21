package qct

// pointInPolygon reports whether (x, y) lies inside the closed polygon
// described by vertices, using the standard even-odd ray-casting test
// against unsigned integer coordinates. No third-party geometry library
// in the corpus offers a point-in-polygon primitive; this is small
// enough, and specific enough to the outline's integer-scaled
// coordinate space, that pulling in a general-purpose geometry package
// for it would be a heavier dependency than the single loop it replaces.
func pointInPolygon(vertices [][2]uint32, x, y uint32) bool {
	inside := false
	n := len(vertices)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := vertices[i][0], vertices[i][1]
		xj, yj := vertices[j][0], vertices[j][1]

		crosses := (yi > y) != (yj > y)
		if !crosses {
			continue
		}

		// x at which the edge (i,j) crosses horizontal line y, computed
		// in floating point since the edge can run either direction.
		xCross := float64(xi) + (float64(y)-float64(yi))*(float64(xj)-float64(xi))/(float64(yj)-float64(yi))
		if float64(x) < xCross {
			inside = !inside
		}
	}
	return inside
}
