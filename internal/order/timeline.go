package order

type StepState string

const (
	StepCompleted StepState = "completed"
	StepCurrent   StepState = "current"
	StepPending   StepState = "pending"
)

type Step struct {
	Status Status    `json:"status"`
	Label  string    `json:"label"`
	State  StepState `json:"state"`
}

// Timeline is either cancelled, with no steps, or one step per Sequence entry.
type Timeline struct {
	Current   Status `json:"current"`
	Cancelled bool   `json:"cancelled"`
	Steps     []Step `json:"steps,omitempty"`
}

func ProjectTimeline(current Status) Timeline {
	if current == StatusCancelled {
		return Timeline{Current: current, Cancelled: true}
	}

	idx, _ := current.Position()
	steps := make([]Step, len(Sequence))
	for i, st := range Sequence {
		state := StepPending
		switch {
		case idx < 0:
		case i < idx:
			state = StepCompleted
		case i == idx:
			state = StepCurrent
		}
		steps[i] = Step{Status: st, Label: st.Label(), State: state}
	}

	return Timeline{Current: current, Steps: steps}
}
