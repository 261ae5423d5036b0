package phase

import "time"

// Durations are the timer lengths of every timed phase
type Durations struct {
	MediaDownload    time.Duration
	Showing          time.Duration
	Answering        time.Duration
	ShowingAnswer    time.Duration
	SecretTransfer   time.Duration
	StakeBidding     time.Duration
	ThemeElimination time.Duration
	FinalBidding     time.Duration
	FinalAnswering   time.Duration
}

// DefaultDurations returns the standard timer lengths
func DefaultDurations() Durations {
	return Durations{
		MediaDownload:    30 * time.Second,
		Showing:          60 * time.Second,
		Answering:        20 * time.Second,
		ShowingAnswer:    5 * time.Second,
		SecretTransfer:   30 * time.Second,
		StakeBidding:     30 * time.Second,
		ThemeElimination: 30 * time.Second,
		FinalBidding:     30 * time.Second,
		FinalAnswering:   60 * time.Second,
	}
}

// WithDefaults fills every unset duration with its default
func (d Durations) WithDefaults() Durations {
	def := DefaultDurations()
	fill := func(v *time.Duration, fallback time.Duration) {
		if *v <= 0 {
			*v = fallback
		}
	}
	fill(&d.MediaDownload, def.MediaDownload)
	fill(&d.Showing, def.Showing)
	fill(&d.Answering, def.Answering)
	fill(&d.ShowingAnswer, def.ShowingAnswer)
	fill(&d.SecretTransfer, def.SecretTransfer)
	fill(&d.StakeBidding, def.StakeBidding)
	fill(&d.ThemeElimination, def.ThemeElimination)
	fill(&d.FinalBidding, def.FinalBidding)
	fill(&d.FinalAnswering, def.FinalAnswering)
	return d
}
