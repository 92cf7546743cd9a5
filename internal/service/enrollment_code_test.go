package service

import (
	"math/rand"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var codePattern = regexp.MustCompile(`^\d{2}\.[12]\.\d{4}$`)

func TestGenerateEnrollmentCodeFormat(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		code := GenerateEnrollmentCode(time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC), rng)
		assert.Regexp(t, codePattern, code)
	}
}

func TestGenerateEnrollmentCodeSemester(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	cases := []struct {
		month    time.Month
		semester string
	}{
		{time.January, "1"},
		{time.June, "1"},
		{time.July, "2"},
		{time.December, "2"},
	}
	for _, tc := range cases {
		code := GenerateEnrollmentCode(time.Date(2026, tc.month, 15, 0, 0, 0, 0, time.UTC), rng)
		parts := strings.Split(code, ".")
		assert.Equal(t, "26", parts[0])
		assert.Equal(t, tc.semester, parts[1], "month %s", tc.month)
	}
}

func TestGenerateEnrollmentCodeSequenceRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		code := GenerateEnrollmentCode(time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC), rng)
		seq := strings.Split(code, ".")[2]
		assert.GreaterOrEqual(t, seq, "1000")
		assert.LessOrEqual(t, seq, "9999")
	}
}
