// Package sta implements the STA state machine: scan-result
// selection, association, address acquisition, and the failure/reassociation
// policy that surrounds them.
package sta

import "fmt"

// State is the STA connection state.
type State int

const (
	StateInitializing State = iota
	StateIdle
	StateScanning
	StateScanningUser
	// StateScanningHidden is an inner mode of StateScanning: a directed
	// follow-up probe on channels collected during a pass that matched
	// nothing but saw hidden SSIDs. Kept as an explicit sub-state rather
	// than a flag so the two rescan modes stay distinguishable in tests.
	StateScanningHidden
	StateAssociating
	StateAssociated
	StateReqAddr
	StateObtAddr
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "INITIALIZING"
	case StateIdle:
		return "IDLE"
	case StateScanning:
		return "SCANNING"
	case StateScanningUser:
		return "SCANNING_USER"
	case StateScanningHidden:
		return "SCANNING_HIDDEN"
	case StateAssociating:
		return "ASSOCIATING"
	case StateAssociated:
		return "ASSOCIATED"
	case StateReqAddr:
		return "REQ_ADDR"
	case StateObtAddr:
		return "OBT_ADDR"
	case StateConnected:
		return "CONNECTED"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

// connecting reports whether s falls in the ASSOCIATING..OBT_ADDR range
// calls "CONNECTING" for the purpose of dropping a scan
// request arriving mid-pipeline.
func (s State) connecting() bool {
	switch s {
	case StateAssociating, StateAssociated, StateReqAddr, StateObtAddr:
		return true
	default:
		return false
	}
}

// scanningAny reports whether s is one of the three scanning substates.
func (s State) scanningAny() bool {
	switch s {
	case StateScanning, StateScanningUser, StateScanningHidden:
		return true
	default:
		return false
	}
}
