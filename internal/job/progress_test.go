package job

import "testing"

func TestProgressPercent(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		completed int
		total     int
		want      int
	}{
		{"empty job is complete", 0, 0, 100},
		{"negative total is complete", 0, -1, 100},
		{"zero of three", 0, 3, 0},
		{"one of three rounds down", 1, 3, 33},
		{"two of three rounds up", 2, 3, 67},
		{"half", 1, 2, 50},
		{"done", 3, 3, 100},
		{"overshoot clamps", 5, 3, 100},
		{"negative completed clamps", -2, 3, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ProgressPercent(tc.completed, tc.total); got != tc.want {
				t.Fatalf("ProgressPercent(%d, %d) = %d, want %d", tc.completed, tc.total, got, tc.want)
			}
		})
	}
}
