package orchestrator

import "time"

const (
	defaultPollInterval = time.Second
	defaultMaxAttempts  = 30
)

// PollConfig bounds the status-polling loop for one dispatch.
type PollConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"maxAttempts"`
}

func (c *PollConfig) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = defaultPollInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
}

// pollState tracks one polling loop. The stop conditions (terminal state
// reached, attempts exhausted, run invalidated) are separate predicates
// checked by the loop, not buried in timer callbacks.
type pollState struct {
	attempt     int
	maxAttempts int
	interval    time.Duration
}

func newPollState(cfg PollConfig) *pollState {
	return &pollState{maxAttempts: cfg.MaxAttempts, interval: cfg.Interval}
}

// exhausted reports whether the attempt ceiling has been reached.
func (p *pollState) exhausted() bool {
	return p.attempt >= p.maxAttempts
}

// next consumes one attempt.
func (p *pollState) next() {
	p.attempt++
}
