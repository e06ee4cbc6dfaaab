package pipeline

import "github.com/sirupsen/logrus"

// State is the lifecycle position of one invocation.
type State string

const (
	StateIdle         State = "idle"
	StateValidating   State = "validating"
	StateStageRunning State = "stage_running"
	StateSucceeded    State = "succeeded"
	StateFailed       State = "failed"
)

func (inv *invocation) transition(to State) {
	inv.state = to
	inv.log.WithField("state", to).Debug("pipeline state")
}

// enter marks the start of the next stage.
func (inv *invocation) enter(stage string) {
	inv.index++
	inv.stage = stage
	inv.state = StateStageRunning
	inv.log.WithFields(logrus.Fields{
		"state": StateStageRunning,
		"stage": stage,
		"step":  inv.index,
	}).Debug("pipeline state")
}
