package dispatcher

import (
	"github.com/nxp-wmsdk/wlcmgr/internal/profile"
	"github.com/nxp-wmsdk/wlcmgr/internal/sta"
	"github.com/nxp-wmsdk/wlcmgr/internal/uap"
)

// StaQuery adapts sta.FSM and the shared profile store into uap.STAQuery,
// letting the uAP FSM's auto-channel policy inherit the STA session's
// channel without the uap package importing sta.
type StaQuery struct {
	STA   *sta.FSM
	Store *profile.Store
}

func (q StaQuery) Connected() bool { return q.STA.State() == sta.StateConnected }

func (q StaQuery) Channel() int {
	if q.STA.State() != sta.StateConnected {
		return 0
	}
	p := q.Store.MutableByIndex(q.STA.CurrentIndex())
	if p == nil {
		return 0
	}
	return p.Channel
}

var _ uap.STAQuery = StaQuery{}

// SessionQuery adapts sta.FSM, uap.FSM and the profile store into
// powersave.SessionQuery, used by the sleep-confirm protocol's
// outstanding-session checks.
type SessionQuery struct {
	STA   *sta.FSM
	UAP   *uap.FSM
	Store *profile.Store
}

func (q SessionQuery) STAConnected() bool { return q.STA.State() == sta.StateConnected }

func (q SessionQuery) UAPActive() bool { return q.UAP.State() != uap.StateInit }

// CurrentIPAddress returns the active interface's own address: the STA
// session's (static or DHCP-learned) address when connected, else the
// uAP's configured address when running, else the zero address.
func (q SessionQuery) CurrentIPAddress() [4]byte {
	if q.STA.State() == sta.StateConnected {
		if p := q.Store.MutableByIndex(q.STA.CurrentIndex()); p != nil {
			if p.IP.Static {
				return [4]byte(p.IP.Address)
			}
			return [4]byte(p.IP.LearnedAddress)
		}
	}
	if q.UAP.State() != uap.StateInit {
		if p, ok := q.Store.GetByIndex(q.UAP.CurrentIndex()); ok {
			return [4]byte(p.IP.Address)
		}
	}
	return [4]byte{}
}
