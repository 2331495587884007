package friend

// Snapshot captures the relationship between a viewer and another user at a
// single point in time. All gate decisions are pure functions of this value;
// callers load it once per operation so a check and its consequence cannot
// observe different states.
type Snapshot struct {
	// Friends is true when a symmetric friendship exists.
	Friends bool `db:"friends"`
	// ViewerBlocked is true when the viewer has blocked the other user.
	ViewerBlocked bool `db:"viewer_blocked"`
	// ViewerIsBlocked is true when the other user has blocked the viewer.
	ViewerIsBlocked bool `db:"viewer_is_blocked"`
	// PendingOutgoing is true when the viewer has a pending request to the other user.
	PendingOutgoing bool `db:"pending_outgoing"`
	// PendingIncoming is true when the other user has a pending request to the viewer.
	PendingIncoming bool `db:"pending_incoming"`
}

// BlockedEitherWay reports whether a block exists in either direction.
// A block in either direction vetoes every interaction between the pair.
func (s Snapshot) BlockedEitherWay() bool {
	return s.ViewerBlocked || s.ViewerIsBlocked
}

// CanMessage reports whether the pair may exchange messages: they must be
// friends and unblocked in both directions.
func (s Snapshot) CanMessage() bool {
	return s.Friends && !s.BlockedEitherWay()
}

// HasPendingRequest reports whether a pending request exists in either
// direction. A new request is rejected while one is outstanding.
func (s Snapshot) HasPendingRequest() bool {
	return s.PendingOutgoing || s.PendingIncoming
}
