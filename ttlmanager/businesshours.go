package ttlmanager

import "time"

// BusinessHours configures the window StrategyTimeAware treats as the
// "inside business hours" period.
type BusinessHours struct {
	// StartHour and EndHour are in [0,24), local to Location.
	StartHour int
	EndHour   int
	Location  *time.Location
}

// DefaultBusinessHours is nine-to-five in UTC.
func DefaultBusinessHours() BusinessHours {
	return BusinessHours{StartHour: 9, EndHour: 17, Location: time.UTC}
}

func (b BusinessHours) withDefaults() BusinessHours {
	if b.Location == nil {
		b.Location = time.UTC
	}
	if b.StartHour == 0 && b.EndHour == 0 {
		b.StartHour, b.EndHour = 9, 17
	}
	return b
}

// contains reports whether at falls within the configured business-hours
// window on a weekday.
func (b BusinessHours) contains(at time.Time) bool {
	local := at.In(b.Location)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	hour := local.Hour()
	return hour >= b.StartHour && hour < b.EndHour
}

func isWeekend(at time.Time, loc *time.Location) bool {
	d := at.In(loc).Weekday()
	return d == time.Saturday || d == time.Sunday
}
