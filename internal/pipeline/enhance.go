package pipeline

import "context"

// StartEnhancement kicks off one preview run over the current pending
// candidates. It needs at least two pending images and refuses to start
// while a run is in flight. The run itself happens on its own goroutine and
// never touches the main pipeline state; results land in Previews.
func (s *Session) StartEnhancement(ctx context.Context) error {
	s.mu.Lock()
	if s.enhancer == nil {
		s.mu.Unlock()
		return ErrEnhancerNotConfigured
	}
	if s.enhancing {
		s.mu.Unlock()
		return ErrEnhancementInFlight
	}

	var resources []Resource
	for _, c := range s.candidates {
		if c.State == StatePending {
			resources = append(resources, c.Resource)
		}
	}
	if len(resources) < 2 {
		s.mu.Unlock()
		return ErrNotEnoughCandidates
	}

	s.enhancing = true
	s.enhanceErr = nil
	s.mu.Unlock()

	go func() {
		previews, err := s.enhancer.Enhance(ctx, resources)

		s.mu.Lock()
		s.enhancing = false
		s.enhanceErr = err
		if err == nil {
			s.previews = previews
		}
		s.mu.Unlock()
	}()
	return nil
}

// EnhancementInFlight reports whether a preview run is active. The trigger
// affordance is hidden while this is true.
func (s *Session) EnhancementInFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enhancing
}

// Previews returns the results of the last completed enhancement run and
// its error, if any.
func (s *Session) Previews() ([]Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Preview(nil), s.previews...), s.enhanceErr
}
