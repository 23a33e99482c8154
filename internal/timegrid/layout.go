package timegrid

// Box is the absolute position of one entry inside the week grid,
// expressed as percentages of the grid surface so every client renders
// the same geometry regardless of pixel size.
type Box struct {
	TopPct    float64 `json:"top_pct"`
	HeightPct float64 `json:"height_pct"`
	LeftPct   float64 `json:"left_pct"`
	WidthPct  float64 `json:"width_pct"`
}

// Layout places a day/time window on the grid. The second return is
// false when the day is not a visible column, in which case the entry is
// skipped silently by callers. Malformed clock strings produce a clamped
// box rather than an error.
func (g Grid) Layout(day, start, end string) (Box, bool) {
	dayIdx, ok := DayIndex(day)
	if !ok {
		return Box{}, false
	}
	total := g.TotalSlots()
	if total == 0 {
		return Box{}, false
	}

	startSlot := g.TimeToSlot(start)
	endSlot := g.TimeToSlot(end)
	if endSlot < startSlot {
		endSlot = startSlot
	}

	columns := float64(len(Days))
	return Box{
		TopPct:    float64(startSlot) / float64(total) * 100,
		HeightPct: float64(endSlot-startSlot) / float64(total) * 100,
		LeftPct:   float64(dayIdx) / columns * 100,
		WidthPct:  100 / columns,
	}, true
}
