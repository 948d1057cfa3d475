package jetdb

// Comparator orders two encoded keys, returning <0, 0 or >0.
type Comparator func(a, b []byte) int

// BytesComparator orders keys byte-wise, a shorter key sorting before any
// longer key it prefixes.
func BytesComparator(a, b []byte) int {
	lenA, lenB := len(a), len(b)
	n := min(lenA, lenB)
	for i := 0; i < n; i++ {
		if a[i] < b[i] {
			return -1
		} else if a[i] > b[i] {
			return 1
		}
	}
	if lenA > lenB {
		return 1
	} else if lenA < lenB {
		return -1
	}
	return 0
}

// Int32Comparator orders keys holding a little-endian int32.
func Int32Comparator(a, b []byte) int {
	x, y := int32(le32(a)), int32(le32(b))
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func le32(b []byte) uint32 {
	var v uint32
	for i := 0; i < 4 && i < len(b); i++ {
		v |= uint32(b[i]) << (8 * i)
	}
	return v
}

// comparatorFor returns the key order of a column type.
func comparatorFor(t ColType) Comparator {
	switch t {
	case ColBool, ColByte, ColInt, ColLongInt:
		return Int32Comparator
	}
	return BytesComparator
}
