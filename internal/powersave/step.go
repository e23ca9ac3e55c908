package powersave

// EventKind enumerates the events either power-save FSM reacts to.
// evEnter is the internal pseudo-event used to run a state's entry
// actions after a self-transition.
type EventKind int

const (
	EvEnable EventKind = iota
	EvEnableDone
	EvAwake
	EvSleep
	EvSlpCfm
	EvDisable
	EvDisableDone
	evEnter
)

// Event is the value delivered to FSM.Handle.
type Event struct {
	Kind EventKind
}

// action is one side effect a transition requests; the outer FSM applies
// these against the driver/callback after step returns.
type action int

const (
	actionSendEnterPS action = iota
	actionSendExitPS
	actionAttemptSleepConfirm
	actionEmitPsEnter
	actionEmitPsExit
)

// step is the pure transition function: given the current state, the
// incoming event, and whether the STA session is CONNECTED (the only
// guard that matters, on DISABLE from SLEEP), it returns the next state
// and the actions that transition requests. Unhandled (state, event)
// pairs are a no-op self-loop.
func step(s State, ev EventKind, staConnected bool) (State, []action) {
	switch s {
	case StateInit:
		switch ev {
		case EvEnable:
			return StateInit, []action{actionSendEnterPS}
		case EvEnableDone:
			return StateConfiguring, nil
		}

	case StateConfiguring:
		switch ev {
		case EvAwake:
			return StateAwake, nil
		case EvSleep:
			return StatePreSleep, nil
		case EvDisable:
			return StateInit, nil
		}

	case StateAwake:
		switch ev {
		case EvSleep:
			return StatePreSleep, nil
		case EvDisable:
			return StateInit, nil
		}

	case StatePreSleep:
		switch ev {
		case evEnter:
			return StatePreSleep, []action{actionAttemptSleepConfirm}
		case EvSlpCfm:
			return StateSleep, []action{actionEmitPsEnter}
		case EvDisable:
			return StateInit, nil
		}

	case StateSleep:
		switch ev {
		case EvAwake:
			// Driver-initiated exit from sleep with no user DISABLE, e.g.
			// a DIS_AUTO_PS indication from the firmware.
			return StateAwake, []action{actionEmitPsExit}
		case EvDisable:
			if staConnected {
				return StatePreDisable, nil
			}
			return StateInit, []action{actionEmitPsExit}
		}

	case StatePreDisable:
		switch ev {
		case evEnter:
			return StateDisabling, []action{actionSendExitPS}
		}

	case StateDisabling:
		switch ev {
		case EvDisableDone:
			return StateInit, []action{actionEmitPsExit}
		}
	}

	return s, nil
}
