package scheduling

// Overlaps reports whether the half-open ranges [aStart, aEnd) and [bStart, bEnd) intersect.
// Back-to-back ranges (aEnd == bStart) do not overlap. Inputs must already satisfy start < end.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && bStart < aEnd
}
