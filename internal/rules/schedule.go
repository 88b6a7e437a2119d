package rules

import "time"

// IsDue reports whether rule should run at now.
// Manual rules are never due. A rule that has never run is due. Otherwise at
// least one whole unit of the schedule must have elapsed since LastRun.
func IsDue(rule CleaningRule, now time.Time) bool {
	if rule.Schedule == ScheduleManual {
		return false
	}
	if rule.LastRun == nil {
		return rule.Schedule.Valid()
	}

	last := *rule.LastRun
	switch rule.Schedule {
	case ScheduleHourly:
		return now.Sub(last) >= time.Hour
	case ScheduleDaily:
		return !last.AddDate(0, 0, 1).After(now)
	case ScheduleWeekly:
		return !last.AddDate(0, 0, 7).After(now)
	case ScheduleMonthly:
		return !last.AddDate(0, 1, 0).After(now)
	}
	return false
}

// NextRun returns when rule next becomes due. ok is false for manual rules.
func NextRun(rule CleaningRule, now time.Time) (next time.Time, ok bool) {
	if rule.Schedule == ScheduleManual || !rule.Schedule.Valid() {
		return time.Time{}, false
	}
	if rule.LastRun == nil {
		return now, true
	}

	last := *rule.LastRun
	switch rule.Schedule {
	case ScheduleHourly:
		next = last.Add(time.Hour)
	case ScheduleDaily:
		next = last.AddDate(0, 0, 1)
	case ScheduleWeekly:
		next = last.AddDate(0, 0, 7)
	case ScheduleMonthly:
		next = last.AddDate(0, 1, 0)
	}
	return next, true
}
