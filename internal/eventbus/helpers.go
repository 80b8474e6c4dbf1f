package eventbus

// DropRate returns the fraction of events dropped for a subscriber (0.0 to 1.0).
// Returns 0.0 if nothing was sent or dropped.
func DropRate(stats SubscriberStats) float64 {
	total := stats.Sent + stats.Dropped
	if total == 0 {
		return 0.0
	}
	return float64(stats.Dropped) / float64(total)
}
