package service

import "time"

const (
	// ProcessingTimeout bounds one draw end to end, including resolution.
	ProcessingTimeout = 2 * time.Minute
	// DefaultTickInterval is the due-giveaway scan period.
	DefaultTickInterval = 30 * time.Second
	// DefaultMaxConcurrentDraws bounds simultaneously processed giveaways.
	DefaultMaxConcurrentDraws = 10
	// TransitionTimeout bounds the claimed->open revert and the
	// claimed->finalized transition. These run on their own context: the
	// draw context may already be done when they are needed.
	TransitionTimeout = 5 * time.Second
)
