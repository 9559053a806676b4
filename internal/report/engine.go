package report

import (
	"sort"
	"strconv"
	"time"
)

// Window is a half-open time interval [Start, End). A zero End leaves the
// window unbounded on the right, which is how the as-of-now rollups
// (month-to-date, year-to-date) are expressed.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window: the start instant
// belongs to the window, the end instant does not.
func (w Window) Contains(t time.Time) bool {
	return w.Filter().Match(t)
}

// Filter converts the window into a ledger filter.
func (w Window) Filter() ClaimFilter {
	return ClaimFilter{From: w.Start, To: w.End}
}

// MonthWindow covers one full calendar month in the given location.
func MonthWindow(year, month int, loc *time.Location) Window {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// YearWindow covers one full calendar year in the given location.
func YearWindow(year int, loc *time.Location) Window {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(1, 0, 0)}
}

// MonthToDate anchors at the first instant of now's month and is unbounded
// on the right.
func MonthToDate(now time.Time) Window {
	return Window{Start: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())}
}

// YearToDate anchors at the first instant of now's year and is unbounded on
// the right.
func YearToDate(now time.Time) Window {
	return Window{Start: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())}
}

// DaysIn returns the number of days in a calendar month (28-31).
func DaysIn(year, month int) int {
	// day 0 of the next month is the last day of this one
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthShortName returns the three-letter month name for 1-12.
func MonthShortName(month int) string {
	return time.Month(month).String()[:3]
}

// MonthName returns the full month name for 1-12.
func MonthName(month int) string {
	return time.Month(month).String()
}

// DensifyMonths reconciles a sparse per-month aggregation (bucket keys
// "1".."12") against the full 12-month index. Every month absent from the
// sparse set comes back with count and amount zero, so a yearly trend always
// has exactly 12 points.
func DensifyMonths(sparse []Bucket) []MonthPoint {
	byMonth := indexBuckets(sparse)
	dense := make([]MonthPoint, 12)
	for i := range dense {
		month := i + 1
		b := byMonth[month]
		dense[i] = MonthPoint{
			Month:       MonthShortName(month),
			Count:       b.Count,
			AmountCents: b.Amount.Cents,
		}
	}
	return dense
}

// DensifyDays reconciles a sparse per-day aggregation (bucket keys "1"..N)
// against the actual length of the target month, zero-filling missing days.
func DensifyDays(year, month int, sparse []Bucket) []DayPoint {
	byDay := indexBuckets(sparse)
	dense := make([]DayPoint, DaysIn(year, month))
	for i := range dense {
		day := i + 1
		b := byDay[day]
		dense[i] = DayPoint{
			Day:         day,
			Count:       b.Count,
			AmountCents: b.Amount.Cents,
		}
	}
	return dense
}

// TimeBucketKey derives the month or day bucket key for a creation
// timestamp. The key is taken in loc, which must match the location the
// report window was built in: a claim near a month boundary otherwise
// falls inside the window but files under the wrong bucket. A nil loc
// means UTC. Returns false for non-time group keys.
func TimeBucketKey(key GroupKey, t time.Time, loc *time.Location) (string, bool) {
	if loc == nil {
		loc = time.UTC
	}
	switch key {
	case GroupByMonth:
		return strconv.Itoa(int(t.In(loc).Month())), true
	case GroupByDay:
		return strconv.Itoa(t.In(loc).Day()), true
	}
	return "", false
}

// SortBuckets orders aggregation buckets for the requested sort, breaking
// ties on the key so results are deterministic. Numeric keys compare
// numerically.
func SortBuckets(buckets []Bucket, order SortOrder) {
	less := func(i, j int) bool { return keyLess(buckets[i].Key, buckets[j].Key) }
	switch order {
	case SortCountDesc:
		less = func(i, j int) bool {
			if buckets[i].Count != buckets[j].Count {
				return buckets[i].Count > buckets[j].Count
			}
			return keyLess(buckets[i].Key, buckets[j].Key)
		}
	case SortAmountDesc:
		less = func(i, j int) bool {
			if buckets[i].Amount.Cents != buckets[j].Amount.Cents {
				return buckets[i].Amount.Cents > buckets[j].Amount.Cents
			}
			return keyLess(buckets[i].Key, buckets[j].Key)
		}
	}
	sort.SliceStable(buckets, less)
}

func keyLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}

// indexBuckets maps numeric bucket keys to their buckets, dropping any key
// that does not parse as an integer.
func indexBuckets(sparse []Bucket) map[int]Bucket {
	out := make(map[int]Bucket, len(sparse))
	for _, b := range sparse {
		key, err := strconv.Atoi(b.Key)
		if err != nil {
			continue
		}
		out[key] = b
	}
	return out
}
