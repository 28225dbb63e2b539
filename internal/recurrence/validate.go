package recurrence

import (
	"fmt"

	"agenda/internal/models"
)

// ValidateRule checks a rule for structural problems and returns one message
// per problem. An empty slice means the rule is valid. Callers must reject a
// rule with problems before persisting it or handing it to Generate.
func ValidateRule(rule *models.RecurrenceRule) []string {
	var problems []string

	if rule == nil {
		return []string{"recurrence rule is required"}
	}

	if rule.Frequency == "" {
		problems = append(problems, "frequency is required")
	} else if _, ok := frequencyOf(rule.Frequency); !ok {
		problems = append(problems, fmt.Sprintf("invalid frequency %q", rule.Frequency))
	}

	if rule.Interval < 0 {
		problems = append(problems, "interval must be a positive integer")
	}

	if rule.Frequency == models.FreqWeekly {
		for _, code := range rule.DaysOfWeek {
			if !models.ValidWeekday(code) {
				problems = append(problems, fmt.Sprintf("invalid day of week %q", code))
			}
		}
	}

	if rule.Frequency == models.FreqMonthly {
		if rule.DayOfMonth != nil && (*rule.DayOfMonth < 1 || *rule.DayOfMonth > 31) {
			problems = append(problems, "day of month must be between 1 and 31")
		}
		if rule.WeekOfMonth != nil {
			if *rule.WeekOfMonth < 1 || *rule.WeekOfMonth > 5 {
				problems = append(problems, "week of month must be between 1 and 5")
			}
			if rule.DayOfWeek == nil {
				problems = append(problems, "day of week is required with week of month")
			} else if !models.ValidWeekday(*rule.DayOfWeek) {
				problems = append(problems, fmt.Sprintf("invalid day of week %q", *rule.DayOfWeek))
			}
		}
	}

	if rule.EndDate != nil && rule.OccurrenceCount != nil {
		problems = append(problems, "cannot specify both end date and occurrence count")
	}

	if rule.OccurrenceCount != nil && *rule.OccurrenceCount < 1 {
		problems = append(problems, "occurrence count must be a positive integer")
	}

	return problems
}

// CheckRule wraps ValidateRule in an error value for call sites that want
// all-or-nothing semantics.
func CheckRule(rule *models.RecurrenceRule) error {
	if problems := ValidateRule(rule); len(problems) > 0 {
		return &InvalidRuleError{Problems: problems}
	}
	return nil
}
