package tool

// Canonical tool names the availability state machine reasons about.
// Registries may carry additional tools; those are gated only in the
// initial state (everything allowed) and via the blocked sets.
const (
	NameBrowseWeb     = "browse_web"
	NameSearchWeb     = "search_web"
	NameFetchURL      = "fetch_url"
	NameExecuteCode   = "execute_code"
	NameDeployWebsite = "deploy_website"
	NameThink         = "think"
	NameNotifyUser    = "notify_user"
	NameAskUser       = "ask_user"
)

// State classifies what the agent is currently doing, inferred from its
// most recent action. The set is closed; anything else is treated as
// unknown and grants nothing.
type State string

const (
	StateInitial     State = "initial"
	StateBrowsing    State = "browsing"
	StateCoding      State = "coding"
	StateDeploying   State = "deploying"
	StateWaitingUser State = "waiting_user"
	StateCompleting  State = "completing"
)

// Availability is the tool gating for one turn. Available and Blocked are
// always disjoint. A non-empty Required means the caller must force that
// exact tool call rather than accept a free-form answer.
type Availability struct {
	Available []string
	Blocked   []string
	Required  string
}

// FullToolSet returns every canonical tool name. The initial state makes
// all of them available.
func FullToolSet() []string {
	return []string{
		NameBrowseWeb,
		NameSearchWeb,
		NameFetchURL,
		NameExecuteCode,
		NameDeployWebsite,
		NameThink,
		NameNotifyUser,
		NameAskUser,
	}
}

// InferState derives the agent state from its recent action history using
// a single-step lookback: only the most recent action matters, never the
// full trace. An empty history is the initial state.
func InferState(recentActions []string) State {
	if len(recentActions) == 0 {
		return StateInitial
	}

	switch recentActions[len(recentActions)-1] {
	case NameBrowseWeb, NameSearchWeb, NameFetchURL:
		return StateBrowsing
	case NameExecuteCode:
		return StateCoding
	case NameDeployWebsite:
		return StateDeploying
	default:
		return StateInitial
	}
}

// AvailabilityFor is a pure total function from state to tool gating.
// Unknown states return empty sets: nothing granted, nothing required,
// never an error.
func AvailabilityFor(state State) Availability {
	switch state {
	case StateInitial:
		return Availability{Available: FullToolSet()}
	case StateBrowsing:
		return Availability{
			Available: []string{NameBrowseWeb, NameThink},
			Blocked:   []string{NameDeployWebsite, NameExecuteCode},
			Required:  NameBrowseWeb,
		}
	case StateCoding:
		return Availability{
			Available: []string{NameExecuteCode, NameThink},
			Blocked:   []string{NameBrowseWeb, NameDeployWebsite},
		}
	case StateDeploying:
		return Availability{
			Available: []string{NameDeployWebsite, NameThink},
			Blocked:   []string{NameBrowseWeb, NameExecuteCode},
			Required:  NameDeployWebsite,
		}
	case StateWaitingUser:
		return Availability{
			Available: []string{NameThink},
			Blocked:   []string{NameBrowseWeb, NameExecuteCode, NameDeployWebsite},
		}
	case StateCompleting:
		return Availability{
			Available: []string{NameThink},
			Blocked:   []string{NameBrowseWeb, NameExecuteCode, NameDeployWebsite, NameSearchWeb},
		}
	default:
		// Fail closed on unknown states.
		return Availability{}
	}
}

// IsAvailable reports whether name is in the available set.
func (a Availability) IsAvailable(name string) bool { return contains(a.Available, name) }

// IsBlocked reports whether name is in the blocked set.
func (a Availability) IsBlocked(name string) bool { return contains(a.Blocked, name) }

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
