package timegrid

import (
	"fmt"
	"hash/fnv"
)

// Hue derives a stable color hue from a subject name so the same subject
// always renders in the same color without a lookup table.
func Hue(name string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return int(h.Sum32() % 360)
}

// FillColor is the block background shade for a subject.
func FillColor(name string) string {
	return fmt.Sprintf("hsl(%d, 65%%, 85%%)", Hue(name))
}

// BorderColor is the block border shade; it differs from the fill by
// lightness only.
func BorderColor(name string) string {
	return fmt.Sprintf("hsl(%d, 65%%, 45%%)", Hue(name))
}
