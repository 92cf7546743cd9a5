package service

import (
	"fmt"
	"math/rand"
	"time"
)

// GenerateEnrollmentCode produces the human-facing enrollment identifier in
// the form "YY.S.RRRR": two-digit year, semester digit (1 for Jan-Jun, 2 for
// Jul-Dec) and a random number in [1000, 9999].
//
// The code space holds 9000 values per half-year, so collisions are possible;
// the unique index on enrollments.code rejects a colliding insert and the
// caller surfaces that as a failed creation. There is no retry loop here.
//
// A nil rng falls back to the locked package-level source, which is what
// concurrent request handling uses.
func GenerateEnrollmentCode(now time.Time, rng *rand.Rand) string {
	semester := 1
	if now.Month() > time.June {
		semester = 2
	}
	seq := 0
	if rng != nil {
		seq = rng.Intn(9000)
	} else {
		seq = rand.Intn(9000)
	}
	return fmt.Sprintf("%02d.%d.%04d", now.Year()%100, semester, seq+1000)
}
