package composition

// ---------------------------------------------------------------------------
// TimelineAllocator — converts a target total duration and a scene count into
// a per-scene duration schedule. Equal split by construction: durations are
// never rounded, so the sum-equals-target invariant holds exactly instead of
// needing a post-hoc drift correction.
//
// Per-scene weighting by script length is an open product question; until it
// is answered, every scene gets the same slice.
// ---------------------------------------------------------------------------

// AllocateDurations returns n per-scene durations summing to targetDuration.
func AllocateDurations(n int, targetDuration float64) ([]float64, error) {
	if n <= 0 {
		return nil, errEmptyProject()
	}
	if targetDuration <= 0 {
		return nil, errInvalidDuration(targetDuration)
	}

	per := targetDuration / float64(n)
	durations := make([]float64, n)
	for i := range durations {
		durations[i] = per
	}
	return durations, nil
}
