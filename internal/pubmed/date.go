package pubmed

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO-8601 layout of every date this package emits. It is
// fixed-width and zero padded, so string comparison orders dates chronologically.
const DateLayout = "2006-01-02"

const (
	numericMonthLayout = "2006 1 2"
	namedMonthLayout   = "2006 Jan 2"
)

// ErrInvalidDate is wrapped by every DateError.
var ErrInvalidDate = errors.New("invalid date")

// DateError describes year/month/day components that could not be parsed.
type DateError struct {
	Year, Month, Day string
	Err              error
}

func (e *DateError) Error() string {
	return fmt.Sprintf("invalid date %q %q %q: %v", e.Year, e.Month, e.Day, e.Err)
}

func (e *DateError) Unwrap() []error {
	return []error{ErrInvalidDate, e.Err}
}

// ParseDate normalizes PubMed date components to ISO-8601. Month may be
// numeric ("03", "3") or a three-letter abbreviation ("Mar").
func ParseDate(year, month, day string) (string, error) {
	year = strings.TrimSpace(year)
	month = strings.TrimSpace(month)
	day = strings.TrimSpace(day)

	layout := namedMonthLayout
	if isDigits(month) {
		layout = numericMonthLayout
	}

	t, err := time.Parse(layout, year+" "+month+" "+day)
	if err != nil {
		return "", &DateError{Year: year, Month: month, Day: day, Err: err}
	}
	return t.Format(DateLayout), nil
}
