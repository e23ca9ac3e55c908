package profile

import (
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmerrors"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

// Backend lets a supplicant (or other credential sink) be notified of
// profile lifecycle events: informed of a newly added profile, with the
// slot cleared again if the backend rejects it.
type Backend interface {
	OnProfileAdded(p *Profile) error
	OnProfileRemoved(p *Profile)
}

// nullBackend is used when no supplicant backend is wired.
type nullBackend struct{}

func (nullBackend) OnProfileAdded(*Profile) error { return nil }
func (nullBackend) OnProfileRemoved(*Profile)     {}

// StaStateQuery lets the store enforce the add/remove state preconditions
// without importing the sta package (which in turn depends
// on profile), avoiding an import cycle.
type StaStateQuery interface {
	// IsAddAllowed reports whether a STA profile may be added right now
	// (STA must be IDLE, ASSOCIATED, or CONNECTED).
	IsAddAllowed() bool
	// CurrentSTAConnected reports whether the named profile is the active
	// STA profile and STA is CONNECTED.
	CurrentSTAConnected(name string) bool
}

// UapStateQuery is the uAP analogue of StaStateQuery.
type UapStateQuery interface {
	CurrentUAPUp(name string) bool
}

// Store holds at most Capacity named profiles.
// It is mutated only by the dispatcher goroutine; callers embedding WCM in
// a multi-goroutine program must serialize Add/Remove through the
// dispatcher's event queue exactly as the STA/uAP FSMs do.
type Store struct {
	Capacity int

	slots   []*Profile // nil slot = empty; index is a stable handle
	backend Backend

	sta StaStateQuery
	uap UapStateQuery
}

// New creates a Store with the given capacity (MAX_KNOWN_NETWORKS).
func New(capacity int) *Store {
	return &Store{
		Capacity: capacity,
		slots:    make([]*Profile, capacity),
		backend:  nullBackend{},
	}
}

// SetBackend wires a supplicant (or other) backend to be notified of add/
// remove. Must be called before any Add.
func (s *Store) SetBackend(b Backend) {
	if b == nil {
		b = nullBackend{}
	}
	s.backend = b
}

// SetStateQueries wires the STA/uAP state preconditions used by Add/Remove.
func (s *Store) SetStateQueries(sta StaStateQuery, uap UapStateQuery) {
	s.sta = sta
	s.uap = uap
}

// Add validates and inserts p, computing its specificity bits from the
// caller-supplied fields.
//
// Returns wcmerrors with Kind NoMem (store full), Invalid (name clash or
// failed validation), or State (STA add attempted outside IDLE/ASSOCIATED/
// CONNECTED).
func (s *Store) Add(p Profile) (int, error) {
	const op = "profile.add"

	if len(p.Name) < 1 || len(p.Name) > 32 {
		return -1, wcmerrors.New(op, wcmerrors.KindInvalid, nil)
	}
	if len(p.SSID) == 0 && p.BSSID == ([6]byte{}) {
		return -1, wcmerrors.New(op, wcmerrors.KindInvalid, nil)
	}
	if err := ValidateSecurity(p.Security); err != nil {
		return -1, err
	}
	if err := ValidateIP(p.Role, p.IP); err != nil {
		return -1, err
	}
	if p.Role == wcmtypes.RoleSTA && s.sta != nil && !s.sta.IsAddAllowed() {
		return -1, wcmerrors.New(op, wcmerrors.KindState, nil)
	}

	if _, _, found := s.findByName(p.Name); found {
		return -1, wcmerrors.New(op, wcmerrors.KindInvalid, nil)
	}

	slot := s.freeSlot()
	if slot < 0 {
		return -1, wcmerrors.New(op, wcmerrors.KindNoMem, nil)
	}

	p.SSIDSpecific = len(p.SSID) > 0
	p.BSSIDSpecific = p.BSSID != [6]byte{}
	p.ChannelSpecific = p.Channel != 0

	cp := p
	if err := s.backend.OnProfileAdded(&cp); err != nil {
		return -1, wcmerrors.New(op, wcmerrors.KindFail, err)
	}

	s.slots[slot] = &cp
	return slot, nil
}

// Remove deletes the named profile, rejecting the call per if
// it is the active CONNECTED STA profile or the active IP_UP uAP profile.
func (s *Store) Remove(name string) error {
	const op = "profile.remove"

	idx, p, found := s.findByName(name)
	if !found {
		return wcmerrors.New(op, wcmerrors.KindInvalid, nil)
	}
	if p.Role == wcmtypes.RoleSTA && s.sta != nil && s.sta.CurrentSTAConnected(name) {
		return wcmerrors.New(op, wcmerrors.KindState, nil)
	}
	if p.Role == wcmtypes.RoleUAP && s.uap != nil && s.uap.CurrentUAPUp(name) {
		return wcmerrors.New(op, wcmerrors.KindState, nil)
	}

	s.backend.OnProfileRemoved(p)
	s.slots[idx] = nil
	return nil
}

// GetByIndex returns a scrubbed copy of the profile at i.
func (s *Store) GetByIndex(i int) (Profile, bool) {
	if i < 0 || i >= len(s.slots) || s.slots[i] == nil {
		return Profile{}, false
	}
	return copyOut(s.slots[i]), true
}

// GetByName returns a scrubbed copy of the named profile.
func (s *Store) GetByName(name string) (Profile, bool) {
	_, p, found := s.findByName(name)
	if !found {
		return Profile{}, false
	}
	return copyOut(p), true
}

// MutableByIndex returns the live profile pointer for dispatcher-internal
// mutation (recording discovered BSS parameters on match). Not exported
// outside this module's trust boundary: callers in sta/uap hold it only
// for the duration of one dispatcher event.
func (s *Store) MutableByIndex(i int) *Profile {
	if i < 0 || i >= len(s.slots) {
		return nil
	}
	return s.slots[i]
}

// IndexOfName returns the slot index of the named profile, or -1 if none
// exists. Used by the STA/uAP FSMs to resolve a user-supplied name to the
// stable handle they track as cur_sta_idx/cur_uap_idx.
func (s *Store) IndexOfName(name string) (int, bool) {
	idx, _, found := s.findByName(name)
	return idx, found
}

// Count returns the number of occupied slots.
func (s *Store) Count() int {
	n := 0
	for _, p := range s.slots {
		if p != nil {
			n++
		}
	}
	return n
}

func (s *Store) findByName(name string) (int, *Profile, bool) {
	for i, p := range s.slots {
		if p != nil && p.Name == name {
			return i, p, true
		}
	}
	return -1, nil, false
}

func (s *Store) freeSlot() int {
	for i, p := range s.slots {
		if p == nil {
			return i
		}
	}
	return -1
}

// copyOut scrubs dynamically-learned fields before returning a profile to a
// caller: address info and discovered BSSID/SSID/channel for fields marked
// non-specific.
func copyOut(p *Profile) Profile {
	cp := *p
	cp.IP.LearnedAddress = IPv4Addr{}
	if !p.ChannelSpecific {
		cp.Channel = 0
	}
	if !p.BSSIDSpecific {
		cp.BSSID = [6]byte{}
	}
	if !p.SSIDSpecific {
		cp.SSID = nil
	}
	cp.Discovered = DiscoveredParams{}
	return cp
}
