package coerce

import (
	"regexp"
	"strconv"
	"time"
	_ "time/tzdata" // the workbook zone must resolve on hosts without zoneinfo

	"github.com/xuri/excelize/v2"
)

// DefaultZone is the wall-clock zone the workbook is maintained in.
const DefaultZone = "America/Montevideo"

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts in match order. Day comes before month in every slash layout.
var (
	fourDigitYearLayouts = []string{
		"2/1/2006 15:04:05", "2/1/2006 15:04", "2/1/2006",
		"2-1-2006 15:04:05", "2-1-2006 15:04", "2-1-2006",
		"2.1.2006",
	}
	twoDigitYearLayouts = []string{
		"2/1/06 15:04:05", "2/1/06 15:04", "2/1/06",
		"2-1-06", "2.1.06",
	}
	isoLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// serialRegex matches a raw Excel serial day number.
var serialRegex = regexp.MustCompile(`^\d{1,7}(\.\d+)?$`)

// maxExcelSerial is 9999-12-31.
const maxExcelSerial = 2958465

// LoadZone resolves a named zone, falling back to DefaultZone for "".
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		name = DefaultZone
	}
	return time.LoadLocation(name)
}

// ParseDate parses a cell as a wall-clock time in loc and returns it in UTC.
// Layouts are tried in order and the first structural match wins.
// Returns nil when no layout matches.
func ParseDate(s string, loc *time.Location) *time.Time {
	s = CleanCell(s)
	if s == "" {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return utc(t)
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return utc(t)
		}
	}

	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return utc(t)
		}
	}

	return parseSerial(s, loc)
}

// parseSerial reads raw workbook cells, which carry dates as serial day
// numbers counted from the 1900 epoch.
func parseSerial(s string, loc *time.Location) *time.Time {
	if !serialRegex.MatchString(s) {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 1 || f > maxExcelSerial {
		return nil
	}
	wall, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return nil
	}
	// The serial encodes a wall clock; reinterpret it in the workbook zone.
	t := time.Date(wall.Year(), wall.Month(), wall.Day(),
		wall.Hour(), wall.Minute(), wall.Second(), 0, loc)
	return utc(t)
}

func utc(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}
