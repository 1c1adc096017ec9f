package pipeline

// Schedule is a bounded-attempt plan with a deterministic temperature
// ramp: each retry runs slightly colder than the last. It replaces ad hoc
// retry loops so every retrying stage shares one primitive.
type Schedule struct {
	MaxAttempts int
	Step        float64
}

// DefaultSchedule allows one retry and cools by 0.15 per attempt.
func DefaultSchedule() Schedule {
	return Schedule{MaxAttempts: 2, Step: 0.15}
}

// Attempts returns the total number of attempts, at least one.
func (s Schedule) Attempts() int {
	if s.MaxAttempts < 1 {
		return 1
	}
	return s.MaxAttempts
}

// TemperatureAt returns the temperature for the given attempt index,
// floored at zero.
func (s Schedule) TemperatureAt(base float64, attempt int) float64 {
	t := base - s.Step*float64(attempt)
	if t < 0 {
		return 0
	}
	return t
}
