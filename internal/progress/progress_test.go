package progress

import "testing"

func TestShouldReportCadenceBelowThousand(t *testing.T) {
	for _, c := range []int64{0, 100, 200, 900} {
		if !ShouldReport(c) {
			t.Fatalf("expected ShouldReport(%d) below 1000 to be true on a multiple of 100", c)
		}
	}
	if ShouldReport(150) {
		t.Fatalf("ShouldReport(150) should be false")
	}
}

func TestShouldReportCadenceTiers(t *testing.T) {
	cases := map[int64]bool{
		1_000:   true,
		1_500:   false,
		10_000:  true,
		15_000:  false,
		100_000: true,
		150_000: false,
		200_000: true,
	}
	for count, want := range cases {
		if got := ShouldReport(count); got != want {
			t.Fatalf("ShouldReport(%d) = %v, want %v", count, got, want)
		}
	}
}

func TestReadRSSPeakNeverDecreases(t *testing.T) {
	first := ReadRSS()
	second := ReadRSS()
	if second.Peak < first.Peak {
		t.Fatalf("peak RSS decreased: %d -> %d", first.Peak, second.Peak)
	}
}
