// Package netlink implements driver.Driver against a real Linux kernel
// Wi-Fi device via nl80211/generic-netlink, using github.com/mdlayher/wifi.
//
// It covers scan-result retrieval (the current BSS), interface lookup and
// deauthentication. Associate, address configuration, uAP start/stop,
// allowed-channel, host-sleep and DTIM queries return KindNotSupported; the
// IEEE/deep-sleep power-save commands and SendSleepConfirm are no-ops that
// return nil.
package netlink

import (
	"context"
	"fmt"

	mwifi "github.com/mdlayher/wifi"

	"github.com/nxp-wmsdk/wlcmgr/internal/driver"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmerrors"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
)

// Backend drives a single named Wi-Fi interface through the kernel's
// nl80211 generic-netlink family.
type Backend struct {
	client *mwifi.Client
	ifName string
	iface  *mwifi.Interface

	events chan driver.Event
}

// New dials generic netlink and resolves ifName to an *mwifi.Interface.
func New(ifName string) (*Backend, error) {
	c, err := mwifi.New()
	if err != nil {
		return nil, wcmerrors.New("netlink.new", wcmerrors.KindFail, err)
	}

	ifaces, err := c.Interfaces()
	if err != nil {
		_ = c.Close()
		return nil, wcmerrors.New("netlink.interfaces", wcmerrors.KindFail, err)
	}

	var found *mwifi.Interface
	for _, ifi := range ifaces {
		if ifi.Name == ifName {
			found = ifi
			break
		}
	}
	if found == nil {
		_ = c.Close()
		return nil, wcmerrors.New("netlink.interfaces", wcmerrors.KindInvalid,
			fmt.Errorf("interface %q not found", ifName))
	}

	return &Backend{
		client: c,
		ifName: ifName,
		iface:  found,
		events: make(chan driver.Event, 64),
	}, nil
}

// Close releases the generic netlink connection.
func (b *Backend) Close() error { return b.client.Close() }

// Events exposes the backend's event channel for the dispatcher to drain.
// The real nl80211 backend only synthesizes EventScanResult today (BSS
// enumeration after Scan); richer event delivery would require subscribing
// to the nl80211 multicast "scan" group, which mdlayher/wifi does not yet
// expose publicly.
func (b *Backend) Events() <-chan driver.Event { return b.events }

func (b *Backend) Scan(_ context.Context, _ driver.ScanParams) error {
	// mdlayher/wifi has no direct "trigger scan" call; BSS() reads the
	// most recent scan cache. We treat the read itself as the scan result
	// delivery, matching the driver.Driver contract that Scan blocks until
	// the driver has accepted the request and results arrive as an Event.
	bss, err := b.client.BSS(b.iface)
	if err != nil {
		return wcmerrors.New("netlink.scan", wcmerrors.KindFail, err)
	}

	desc := wcmtypes.BSSDescriptor{
		SSID:    []byte(bss.SSID),
		Channel: 0,
	}
	copy(desc.BSSID[:], bss.BSSID)

	b.events <- driver.Event{Kind: driver.EventScanResult, ScanResults: []wcmtypes.BSSDescriptor{desc}}
	return nil
}

func (b *Backend) Associate(_ context.Context, params driver.AssociateParams) error {
	// Association is not implemented in this backend for any security
	// type; every call returns KindNotSupported.
	return wcmerrors.New("netlink.associate", wcmerrors.KindNotSupported,
		fmt.Errorf("direct nl80211 associate not implemented for security type %s; use a supplicant backend", params.Security))
}

func (b *Backend) Deauthenticate(_ context.Context, _ [6]byte) error {
	return b.client.Disconnect(b.iface)
}

func (b *Backend) Disassociate(_ context.Context, _ [6]byte) error {
	return b.client.Disconnect(b.iface)
}

func (b *Backend) ConfigureSTAAddrStatic(_ context.Context, _, _, _, _, _ [4]byte) error {
	return wcmerrors.New("netlink.configure_sta_addr_static", wcmerrors.KindNotSupported, nil)
}

func (b *Backend) ConfigureSTAAddrDHCP(_ context.Context) error {
	return wcmerrors.New("netlink.configure_sta_addr_dhcp", wcmerrors.KindNotSupported, nil)
}

func (b *Backend) UapStart(_ context.Context, _ driver.UapStartParams) error {
	return wcmerrors.New("netlink.uap_start", wcmerrors.KindNotSupported,
		fmt.Errorf("soft-AP start goes through driver/hostapd, not nl80211 station mode"))
}

func (b *Backend) UapStop(_ context.Context) error {
	return wcmerrors.New("netlink.uap_stop", wcmerrors.KindNotSupported, nil)
}

func (b *Backend) AllowedChannels(_ context.Context) ([]int, error) {
	return nil, wcmerrors.New("netlink.allowed_channels", wcmerrors.KindNotSupported, nil)
}

func (b *Backend) EnterIEEEPS(_ context.Context) error      { return nil }
func (b *Backend) ExitIEEEPS(_ context.Context) error       { return nil }
func (b *Backend) EnterDeepSleepPS(_ context.Context) error { return nil }
func (b *Backend) ExitDeepSleepPS(_ context.Context) error  { return nil }

func (b *Backend) SendHostSleepConfig(_ context.Context, _ driver.HostSleepParams) error {
	return wcmerrors.New("netlink.send_host_sleep_config", wcmerrors.KindNotSupported, nil)
}

func (b *Backend) SendSleepConfirm(_ context.Context, _ wcmtypes.Role) error { return nil }

func (b *Backend) HasOutstandingTransfer() bool { return false }

func (b *Backend) GetDTIMPeriod(_ context.Context, _ [6]byte) (int, error) {
	bss, err := b.client.BSS(b.iface)
	if err != nil {
		return 0, wcmerrors.New("netlink.get_dtim_period", wcmerrors.KindFail, err)
	}
	_ = bss
	// mdlayher/wifi's BSS type does not surface the DTIM IE; report
	// unknown rather than fabricate a value.
	return 0, wcmerrors.New("netlink.get_dtim_period", wcmerrors.KindNotSupported, nil)
}

var _ driver.Driver = (*Backend)(nil)
