package apicontrol

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nxp-wmsdk/wlcmgr/internal/diagnostics"
	"github.com/nxp-wmsdk/wlcmgr/internal/profile"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcm"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmerrors"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

// Handler wires the control-plane routes against a running Manager. It
// holds no state of its own beyond what Manager and diagnostics.Collector
// already track.
type Handler struct {
	mgr  *wcm.Manager
	diag *diagnostics.Collector
	hub  *EventHub
}

// NewHandler builds a Handler for mgr. hub may be nil, in which case
// GET /v1/events reports that event streaming isn't wired up.
func NewHandler(mgr *wcm.Manager, hub *EventHub) *Handler {
	return &Handler{mgr: mgr, diag: diagnostics.NewCollector(), hub: hub}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusForErr maps the WCM error taxonomy onto HTTP status codes.
func statusForErr(err error) int {
	switch wcmerrors.KindOf(err) {
	case wcmerrors.KindInvalid:
		return http.StatusBadRequest
	case wcmerrors.KindState, wcmerrors.KindAlreadyConfigured:
		return http.StatusConflict
	case wcmerrors.KindNotSupported:
		return http.StatusNotImplemented
	case wcmerrors.KindNoMem:
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

func writeOpError(w http.ResponseWriter, err error) {
	writeError(w, statusForErr(err), err.Error())
}

// networkRequest is the wire form of add_network(profile). Byte fields are
// hex-encoded since SSID/PSK/keys are not guaranteed to be valid UTF-8.
type networkRequest struct {
	Name         string `json:"name"`
	Role         string `json:"role"` // "sta" or "uap"
	SSID         string `json:"ssid"`
	Security     string `json:"security"`
	PSK          string `json:"psk,omitempty"`
	Passphrase   string `json:"passphrase,omitempty"`
	WEPKeyIndex  int    `json:"wep_key_index,omitempty"`
	WEPKeyHex    string `json:"wep_key_hex,omitempty"`
	Channel      int    `json:"channel,omitempty"`
}

type networkResponse struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	SSID     string `json:"ssid"`
	Security string `json:"security"`
	Channel  int    `json:"channel"`
}

func toNetworkResponse(i int, p profile.Profile) networkResponse {
	return networkResponse{
		Index:    i,
		Name:     p.Name,
		Role:     p.Role.String(),
		SSID:     string(p.SSID),
		Security: p.Security.Type.String(),
		Channel:  p.Channel,
	}
}

var securityByName = map[string]wcmtypes.SecurityType{
	"none":           wcmtypes.SecurityNone,
	"wep-open":       wcmtypes.SecurityWEPOpen,
	"wep-shared":     wcmtypes.SecurityWEPShared,
	"wpa":            wcmtypes.SecurityWPA,
	"wpa2":           wcmtypes.SecurityWPA2,
	"wpa2-sha256":    wcmtypes.SecurityWPA2SHA256,
	"wpa-wpa2-mixed": wcmtypes.SecurityWPAWPA2Mixed,
	"wpa3-sae":       wcmtypes.SecurityWPA3SAE,
	"wpa2-wpa3-mixed": wcmtypes.SecurityWPA2WPA3Mixed,
	"owe":            wcmtypes.SecurityOWE,
	"wildcard":       wcmtypes.SecurityWildcard,
}

// AddNetwork handles POST /v1/networks.
func (h *Handler) AddNetwork(w http.ResponseWriter, r *http.Request) {
	var req networkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	sec, ok := securityByName[req.Security]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown security type %q", req.Security))
		return
	}

	role := wcmtypes.RoleSTA
	if req.Role == "uap" {
		role = wcmtypes.RoleUAP
	}

	var wepKey []byte
	if req.WEPKeyHex != "" {
		var err error
		wepKey, err = hex.DecodeString(req.WEPKeyHex)
		if err != nil {
			writeError(w, http.StatusBadRequest, "wep_key_hex is not valid hex")
			return
		}
	}

	p := profile.Profile{
		Name:    req.Name,
		Role:    role,
		SSID:    []byte(req.SSID),
		Channel: req.Channel,
		Security: profile.SecurityDescriptor{
			Type:        sec,
			PSK:         req.PSK,
			Passphrase:  req.Passphrase,
			WEPKeyIndex: req.WEPKeyIndex,
			WEPKey:      wepKey,
		},
	}

	idx, err := h.mgr.AddNetwork(r.Context(), p)
	if err != nil {
		writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toNetworkResponse(idx, p))
}

// RemoveNetwork handles DELETE /v1/networks/{name}.
func (h *Handler) RemoveNetwork(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.mgr.RemoveNetwork(r.Context(), name); err != nil {
		writeOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNetworks handles GET /v1/networks.
func (h *Handler) ListNetworks(w http.ResponseWriter, r *http.Request) {
	count := h.mgr.GetNetworkCount()
	out := make([]networkResponse, 0, count)
	for i := 0; i < count; i++ {
		p, ok := h.mgr.GetNetworkByIndex(i)
		if !ok {
			continue
		}
		out = append(out, toNetworkResponse(i, p))
	}
	writeJSON(w, http.StatusOK, out)
}

// Connect handles POST /v1/connect/{name}.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.mgr.Connect(r.Context(), name); err != nil {
		writeOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Disconnect handles POST /v1/disconnect.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.mgr.Disconnect(r.Context()); err != nil {
		writeOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type scanRequest struct {
	Channels []int `json:"channels,omitempty"`
}

type scanResultResponse struct {
	BSSID    string `json:"bssid"`
	SSID     string `json:"ssid"`
	Channel  int    `json:"channel"`
	RSSI     int8   `json:"rssi"`
	Security string `json:"security"`
}

// Scan handles POST /v1/scan. It blocks until the driver delivers the scan
// result, then returns every descriptor the Manager captured.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
	}

	done := make(chan int, 1)
	cb := func(count int) { done <- count }

	var err error
	if len(req.Channels) > 0 {
		err = h.mgr.ScanWithOpt(r.Context(), req.Channels, cb)
	} else {
		err = h.mgr.Scan(r.Context(), cb)
	}
	if err != nil {
		writeOpError(w, err)
		return
	}

	select {
	case <-done:
	case <-r.Context().Done():
		writeError(w, http.StatusGatewayTimeout, "scan did not complete before the request was cancelled")
		return
	}

	count := h.mgr.GetScanResultCount()
	out := make([]scanResultResponse, 0, count)
	for i := 0; i < count; i++ {
		d, ok := h.mgr.GetScanResult(i)
		if !ok {
			continue
		}
		out = append(out, scanResultResponse{
			BSSID:    hex.EncodeToString(d.BSSID[:]),
			SSID:     string(d.SSID),
			Channel:  d.Channel,
			RSSI:     d.RSSI,
			Security: d.Security.String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// StartUAP handles POST /v1/uap/{name}/start.
func (h *Handler) StartUAP(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.mgr.StartNetwork(r.Context(), name); err != nil {
		writeOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// StopUAP handles POST /v1/uap/{name}/stop.
func (h *Handler) StopUAP(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.mgr.StopNetwork(r.Context(), name); err != nil {
		writeOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type powerSaveRequest struct {
	Enable bool `json:"enable"`
}

// IEEEPowerSave handles POST /v1/powersave/ieee, calling EnableIEEEPS or
// DisableIEEEPS according to the request's enable flag.
func (h *Handler) IEEEPowerSave(w http.ResponseWriter, r *http.Request) {
	var req powerSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	var err error
	if req.Enable {
		err = h.mgr.EnableIEEEPS(r.Context())
	} else {
		err = h.mgr.DisableIEEEPS(r.Context())
	}
	if err != nil {
		writeOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// DeepSleepPowerSave handles POST /v1/powersave/deepsleep.
func (h *Handler) DeepSleepPowerSave(w http.ResponseWriter, r *http.Request) {
	var req powerSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	var err error
	if req.Enable {
		err = h.mgr.EnableDeepSleepPS(r.Context())
	} else {
		err = h.mgr.DisableDeepSleepPS(r.Context())
	}
	if err != nil {
		writeOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type hostSleepRequest struct {
	WakeOnUnicast   bool `json:"wake_on_unicast"`
	WakeOnBroadcast bool `json:"wake_on_broadcast"`
	WakeOnMACEvent  bool `json:"wake_on_mac_event"`
}

// SendHostSleep handles POST /v1/hostsleep.
func (h *Handler) SendHostSleep(w http.ResponseWriter, r *http.Request) {
	var req hostSleepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	var cond wcmtypes.WakeupCondition
	if req.WakeOnUnicast {
		cond |= wcmtypes.WakeOnUnicast
	}
	if req.WakeOnBroadcast {
		cond |= wcmtypes.WakeOnBroadcast
	}
	if req.WakeOnMACEvent {
		cond |= wcmtypes.WakeOnMACEvent
	}
	if err := h.mgr.SendHostSleep(r.Context(), cond); err != nil {
		writeOpError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type statusResponse struct {
	ConnectionState string                  `json:"connection_state"`
	MACAddress      string                  `json:"mac_address,omitempty"`
	IPAddress       string                  `json:"ip_address,omitempty"`
	Host            diagnostics.HostStats   `json:"host"`
	Interfaces      []diagnostics.InterfaceCounters `json:"interfaces"`
}

// Status handles GET /v1/status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	mac, err := h.mgr.GetMACAddress()
	macStr := ""
	if err == nil {
		macStr = hex.EncodeToString(mac[:])
	}
	addr := h.mgr.GetAddress(r.Context())

	writeJSON(w, http.StatusOK, statusResponse{
		ConnectionState: h.mgr.GetConnectionState(r.Context()).String(),
		MACAddress:      macStr,
		IPAddress:       fmt.Sprintf("%d.%d.%d.%d", addr[0], addr[1], addr[2], addr[3]),
		Host:            h.mgr.Diagnostics(h.diag),
		Interfaces:      h.diag.Interfaces(),
	})
}

// Events handles GET /v1/events: a Server-Sent Events tail of every
// callback event the Manager has raised since the client connected.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok || h.hub == nil {
		writeError(w, http.StatusNotImplemented, "event streaming unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := h.hub.Register()
	defer h.hub.Unregister(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			payload, _ := json.Marshal(map[string]string{
				"reason":   ev.Reason.String(),
				"mac":      hex.EncodeToString(ev.MAC[:]),
				"ps_mode":  ev.PSMode.String(),
			})
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
