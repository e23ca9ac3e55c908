package profile

import (
	"testing"

	"github.com/nxp-wmsdk/wlcmgr/internal/wcmerrors"
	"github.com/nxp-wmsdk/wlcmgr/internal/wcmtypes"
	"github.com/stretchr/testify/require"
)

func wpa2Profile(name string) Profile {
	return Profile{
		Name: name,
		Role: wcmtypes.RoleSTA,
		SSID: []byte("Home"),
		Security: SecurityDescriptor{
			Type:        SecurityWPA2,
			PSK:         "abcdefgh",
			PMFCapable:  false,
			PMFRequired: false,
		},
		IP: IPConfig{Static: false},
	}
}

func TestAddGetRoundTrip(t *testing.T) {
	s := New(5)
	p := wpa2Profile("home")

	idx, err := s.Add(p)
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	got, ok := s.GetByName("home")
	require.True(t, ok)
	require.Equal(t, p.Name, got.Name)
	require.Equal(t, p.SSID, got.SSID)
	require.True(t, got.SSIDSpecific)
	require.False(t, got.BSSIDSpecific)
	require.Equal(t, IPv4Addr{}, got.IP.LearnedAddress)
}

func TestAddRemoveRestoresCount(t *testing.T) {
	s := New(5)
	before := s.Count()

	_, err := s.Add(wpa2Profile("home"))
	require.NoError(t, err)
	require.NoError(t, s.Remove("home"))

	require.Equal(t, before, s.Count())
	_, ok := s.GetByName("home")
	require.False(t, ok)
}

func TestAddDuplicateNameRejected(t *testing.T) {
	s := New(5)
	_, err := s.Add(wpa2Profile("home"))
	require.NoError(t, err)

	_, err = s.Add(wpa2Profile("home"))
	require.ErrorIs(t, err, wcmerrors.Invalid)
}

func TestAddFullStoreReturnsNoMem(t *testing.T) {
	s := New(5)
	for i := 0; i < 5; i++ {
		_, err := s.Add(wpa2Profile(string(rune('a' + i))))
		require.NoError(t, err)
	}

	_, err := s.Add(wpa2Profile("sixth"))
	require.ErrorIs(t, err, wcmerrors.NoMem)
}

func TestPSKLengthBoundaries(t *testing.T) {
	short := "1234567" // 7 chars
	require.True(t, len(short) == 7)
	require.False(t, validPSK(short))

	eight := "12345678"
	require.True(t, validPSK(eight))

	len63 := ""
	for i := 0; i < 63; i++ {
		len63 += "a"
	}
	require.True(t, validPSK(len63))

	len64NonHex := ""
	for i := 0; i < 64; i++ {
		len64NonHex += "z"
	}
	require.False(t, validPSK(len64NonHex))

	len64Hex := ""
	for i := 0; i < 64; i++ {
		len64Hex += "a"
	}
	require.True(t, validPSK(len64Hex))
}

func TestPassphraseLengthBoundaries(t *testing.T) {
	mk := func(n int) string {
		b := make([]byte, n)
		for i := range b {
			b[i] = 'x'
		}
		return string(b)
	}

	base := SecurityDescriptor{Type: SecurityWPA3SAE, PMFCapable: true, PMFRequired: true}

	b := base
	b.Passphrase = mk(7)
	require.Error(t, ValidateSecurity(b))

	b.Passphrase = mk(8)
	require.NoError(t, ValidateSecurity(b))

	b.Passphrase = mk(256)
	require.Error(t, ValidateSecurity(b))

	b.Passphrase = mk(255)
	require.NoError(t, ValidateSecurity(b))
}

func TestWPA3SAERequiresPMF(t *testing.T) {
	sec := SecurityDescriptor{Type: SecurityWPA3SAE, Passphrase: "12345678"}
	require.Error(t, ValidateSecurity(sec))

	sec.PMFCapable = true
	require.Error(t, ValidateSecurity(sec)) // pmf_required also needed

	sec.PMFRequired = true
	require.NoError(t, ValidateSecurity(sec))
}

func TestUAPGatewayMustEqualAddress(t *testing.T) {
	ip := IPConfig{Static: true, Address: IPv4Addr{192, 168, 10, 1}, Gateway: IPv4Addr{192, 168, 10, 2}}
	require.Error(t, ValidateIP(wcmtypes.RoleUAP, ip))

	ip.Gateway = ip.Address
	require.NoError(t, ValidateIP(wcmtypes.RoleUAP, ip))
}
