package markethours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func mustET(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, eastern)
}

func TestClassifyWeekend(t *testing.T) {
	sat := mustET(2025, time.March, 8, 10, 0)
	assert.Equal(t, SessionWeekend, Classify(sat))
}

func TestClassifyHoliday(t *testing.T) {
	newYears := mustET(2025, time.January, 1, 10, 0)
	assert.Equal(t, SessionHoliday, Classify(newYears))
}

func TestClassifyRegularSession(t *testing.T) {
	wed := mustET(2025, time.March, 12, 10, 0)
	assert.Equal(t, SessionRegular, Classify(wed))
	assert.True(t, IsRegularSession(wed))
}

func TestClassifyPreMarket(t *testing.T) {
	wed := mustET(2025, time.March, 12, 5, 0)
	assert.Equal(t, SessionPreMarket, Classify(wed))
}

func TestClassifyEarlyCloseShortensRegularSession(t *testing.T) {
	earlyCloseDay := mustET(2025, time.July, 3, 13, 30)
	assert.Equal(t, SessionAfterHours, Classify(earlyCloseDay))

	justBeforeClose := mustET(2025, time.July, 3, 12, 59)
	assert.Equal(t, SessionRegular, Classify(justBeforeClose))
}

func TestClassifyAfterHours(t *testing.T) {
	wed := mustET(2025, time.March, 12, 17, 0)
	assert.Equal(t, SessionAfterHours, Classify(wed))
}

func TestClassifyClosedOvernight(t *testing.T) {
	wed := mustET(2025, time.March, 12, 2, 0)
	assert.Equal(t, SessionClosed, Classify(wed))
}
