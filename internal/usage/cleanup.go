package usage

import "time"

// CleanupInterval is how often expired entries are deleted.
const CleanupInterval = time.Hour

// runCleanupLoop calls cleanup immediately and then every interval until
// stop is closed.
func runCleanupLoop(stop <-chan struct{}, interval time.Duration, cleanup func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cleanup()

	for {
		select {
		case <-ticker.C:
			cleanup()
		case <-stop:
			return
		}
	}
}

// retentionCutoff returns the oldest timestamp kept for days of retention.
func retentionCutoff(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days).UTC()
}
