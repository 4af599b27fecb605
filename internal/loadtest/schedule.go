package loadtest

import "time"

// StartOffsets returns the ramp-up start offset of each virtual user. User i
// starts at i*rampUp/users, a linear stagger from 0 to just under rampUp.
func StartOffsets(users int, rampUp time.Duration) []time.Duration {
	if users <= 0 {
		return nil
	}
	offsets := make([]time.Duration, users)
	for i := range offsets {
		offsets[i] = time.Duration(int64(rampUp) * int64(i) / int64(users))
	}
	return offsets
}
