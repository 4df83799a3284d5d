package ranking

// Placement awards follow a fixed decreasing schedule: 100 points for first
// place, 5 fewer for each following place, never below the 5-point floor.
// The schedule is always built for 30 places; only when the field is larger
// than 30 is it extended to the full participant count. Smaller fields keep
// the 30-place table (observed behavior of the original schedule, preserved
// as-is).
const (
	placementTop   = 100
	placementStep  = 5
	placementFloor = 5
	scheduleLength = 30
)

func placementSchedule(maxPlace int) map[int]int64 {
	points := int64(placementTop)
	schedule := make(map[int]int64, maxPlace)
	for place := 1; place <= maxPlace; place++ {
		schedule[place] = points
		points -= placementStep
		if points < placementStep {
			points = placementFloor
		}
	}
	return schedule
}

// PlacementPoints returns the award for finishing at the given 1-based place
// in a field of totalParticipants. Places outside the schedule score zero.
func PlacementPoints(place, totalParticipants int) int64 {
	maxPlace := scheduleLength
	if totalParticipants > scheduleLength {
		maxPlace = totalParticipants
	}
	return placementSchedule(maxPlace)[place]
}
