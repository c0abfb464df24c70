package pipeline

// BeginVerification arms the gate with the first pending candidate. The gate
// never advances automatically past this point without an explicit
// ConfirmUpload or CancelVerification from the operator.
func (s *Session) BeginVerification() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active >= 0 {
		return ErrVerificationActive
	}
	return s.armLocked()
}

// armLocked moves the first pending candidate into Verifying. Callers hold
// the lock and have checked the gate is empty.
func (s *Session) armLocked() error {
	for i, c := range s.candidates {
		if c.State == StatePending {
			c.State = StateVerifying
			s.active = i
			return nil
		}
	}
	return ErrNoPendingCandidates
}

// CancelVerification returns the gated candidate to the pending list
// untouched and empties the gate. No network call has been made for it.
func (s *Session) CancelVerification() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active < 0 {
		return ErrNoActiveVerification
	}
	s.candidates[s.active].State = StatePending
	s.active = -1
	return nil
}
