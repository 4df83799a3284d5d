package ranking

import "testing"

func TestPlacementPoints(t *testing.T) {
	tests := []struct {
		name  string
		place int
		total int
		want  int64
	}{
		{name: "first place", place: 1, total: 30, want: 100},
		{name: "second place", place: 2, total: 30, want: 95},
		{name: "twentieth place hits floor", place: 20, total: 30, want: 5},
		{name: "places past twenty stay at floor", place: 21, total: 30, want: 5},
		{name: "thirtieth place", place: 30, total: 30, want: 5},
		{name: "beyond schedule scores zero", place: 31, total: 30, want: 0},
		{name: "small field keeps full schedule", place: 2, total: 2, want: 95},
		{name: "small field place past roster still scored", place: 25, total: 2, want: 5},
		{name: "large field extends schedule", place: 40, total: 50, want: 5},
		{name: "large field first place unchanged", place: 1, total: 50, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlacementPoints(tt.place, tt.total); got != tt.want {
				t.Errorf("PlacementPoints(%d, %d) = %d, want %d", tt.place, tt.total, got, tt.want)
			}
		})
	}
}

func TestPlacementScheduleShape(t *testing.T) {
	schedule := placementSchedule(scheduleLength)
	if len(schedule) != scheduleLength {
		t.Fatalf("schedule has %d places, want %d", len(schedule), scheduleLength)
	}

	for place := 1; place < 20; place++ {
		want := int64(placementTop - placementStep*(place-1))
		if schedule[place] != want {
			t.Errorf("schedule[%d] = %d, want %d", place, schedule[place], want)
		}
	}
	for place := 20; place <= scheduleLength; place++ {
		if schedule[place] != placementFloor {
			t.Errorf("schedule[%d] = %d, want floor %d", place, schedule[place], placementFloor)
		}
	}
}
