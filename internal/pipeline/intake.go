package pipeline

import "log"

// Add appends user-provided resources to the pending list. Only image-typed
// resources are kept; everything else is dropped without surfacing an error.
// Identical resources are not de-duplicated, each add is an independent
// candidate. Adding also clears the terminal error banner.
func (s *Session) Add(resources ...Resource) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, res := range resources {
		if !res.IsImage() {
			log.Printf("intake: dropping non-image resource %q (%s)", res.Name, res.ContentType)
			continue
		}
		s.candidates = append(s.candidates, &ImageCandidate{
			Resource: res,
			State:    StatePending,
		})
		added++
	}

	s.bannerError = ""
	return added
}

// Remove discards a pending candidate at the given intake position. Gated,
// uploaded, and committed candidates cannot be removed this way.
func (s *Session) Remove(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.candidates) {
		return false
	}
	if s.candidates[index].State != StatePending {
		return false
	}
	s.candidates[index].State = StateRemoved
	return true
}
