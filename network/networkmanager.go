package network

import (
	"context"
	"fmt"

	"github.com/evkuzin/weatherstation-influx/config"
	"github.com/godbus/dbus/v5"
)

const (
	nmDest           = "org.freedesktop.NetworkManager"
	nmPath           = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	nmIface          = "org.freedesktop.NetworkManager"
	nmDeviceWireless = "org.freedesktop.NetworkManager.Device.Wireless"
	nmAccessPoint    = "org.freedesktop.NetworkManager.AccessPoint"
	nmSettingsPath   = dbus.ObjectPath("/org/freedesktop/NetworkManager/Settings")
	nmSettings       = "org.freedesktop.NetworkManager.Settings"
	nmSettingsConn   = "org.freedesktop.NetworkManager.Settings.Connection"

	// NM_STATE_CONNECTED_LOCAL and above carry an IP configuration.
	nmStateConnectedLocal = 50
)

// bus is the part of *dbus.Conn the link uses.
type bus interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
}

// NetworkManager drives a wireless interface through NetworkManager on the
// D-Bus system bus.
type NetworkManager struct {
	bus      bus
	close    func() error
	iface    string
	profiles map[string]dbus.ObjectPath
}

func NewNetworkManager(iface string) (*NetworkManager, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("cannot connect to system bus: %w", err)
	}
	nm := newNetworkManager(conn, iface)
	nm.close = conn.Close
	return nm, nil
}

func newNetworkManager(b bus, iface string) *NetworkManager {
	return &NetworkManager{
		bus:      b,
		close:    func() error { return nil },
		iface:    iface,
		profiles: make(map[string]dbus.ObjectPath),
	}
}

// Join activates the saved profile for the SSID, or creates one. Activation
// runs asynchronously; Connected reports when it is done.
func (nm *NetworkManager) Join(ctx context.Context, ap config.AccessPoint) error {
	dev, err := nm.device(ctx)
	if err != nil {
		return err
	}
	root := nm.bus.Object(nmDest, nmPath)

	profile, err := nm.profile(ctx, ap.SSID)
	if err != nil {
		return err
	}
	var active dbus.ObjectPath
	if profile != "" {
		err := root.CallWithContext(ctx, nmIface+".ActivateConnection", 0, profile, dev, dbus.ObjectPath("/")).Store(&active)
		if err != nil {
			return fmt.Errorf("cannot activate %q: %w", ap.SSID, err)
		}
		return nil
	}

	settings := map[string]map[string]dbus.Variant{
		"connection": {
			"id":   dbus.MakeVariant(ap.SSID),
			"type": dbus.MakeVariant("802-11-wireless"),
		},
		"802-11-wireless": {
			"ssid": dbus.MakeVariant([]byte(ap.SSID)),
			"mode": dbus.MakeVariant("infrastructure"),
		},
	}
	if ap.Password != "" {
		settings["802-11-wireless-security"] = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-psk"),
			"psk":      dbus.MakeVariant(ap.Password),
		}
	}
	err = root.CallWithContext(ctx, nmIface+".AddAndActivateConnection", 0, settings, dev, dbus.ObjectPath("/")).Store(&profile, &active)
	if err != nil {
		return fmt.Errorf("cannot add connection %q: %w", ap.SSID, err)
	}
	nm.profiles[ap.SSID] = profile
	return nil
}

// profile finds the saved connection for ssid, or "" when there is none.
func (nm *NetworkManager) profile(ctx context.Context, ssid string) (dbus.ObjectPath, error) {
	if p, ok := nm.profiles[ssid]; ok {
		return p, nil
	}
	var saved []dbus.ObjectPath
	err := nm.bus.Object(nmDest, nmSettingsPath).CallWithContext(ctx, nmSettings+".ListConnections", 0).Store(&saved)
	if err != nil {
		return "", fmt.Errorf("cannot list saved connections: %w", err)
	}
	for _, p := range saved {
		var settings map[string]map[string]dbus.Variant
		err := nm.bus.Object(nmDest, p).CallWithContext(ctx, nmSettingsConn+".GetSettings", 0).Store(&settings)
		if err != nil {
			continue
		}
		if raw, ok := settings["802-11-wireless"]["ssid"].Value().([]byte); ok && string(raw) == ssid {
			nm.profiles[ssid] = p
			return p, nil
		}
	}
	return "", nil
}

func (nm *NetworkManager) Connected(_ context.Context) (bool, error) {
	v, err := nm.bus.Object(nmDest, nmPath).GetProperty(nmIface + ".State")
	if err != nil {
		return false, fmt.Errorf("cannot read state: %w", err)
	}
	state, ok := v.Value().(uint32)
	if !ok {
		return false, fmt.Errorf("unexpected state type %s", v.Signature())
	}
	return state >= nmStateConnectedLocal, nil
}

func (nm *NetworkManager) ActiveSSID(ctx context.Context) (string, error) {
	dev, err := nm.device(ctx)
	if err != nil {
		return "", err
	}
	v, err := nm.bus.Object(nmDest, dev).GetProperty(nmDeviceWireless + ".ActiveAccessPoint")
	if err != nil {
		return "", fmt.Errorf("cannot read active access point: %w", err)
	}
	ap, ok := v.Value().(dbus.ObjectPath)
	if !ok || ap == "/" {
		return "", ErrNotConnected
	}
	v, err = nm.bus.Object(nmDest, ap).GetProperty(nmAccessPoint + ".Ssid")
	if err != nil {
		return "", fmt.Errorf("cannot read ssid: %w", err)
	}
	ssid, ok := v.Value().([]byte)
	if !ok {
		return "", fmt.Errorf("unexpected ssid type %s", v.Signature())
	}
	return string(ssid), nil
}

func (nm *NetworkManager) Close() error {
	return nm.close()
}

func (nm *NetworkManager) device(ctx context.Context) (dbus.ObjectPath, error) {
	var dev dbus.ObjectPath
	err := nm.bus.Object(nmDest, nmPath).CallWithContext(ctx, nmIface+".GetDeviceByIpIface", 0, nm.iface).Store(&dev)
	if err != nil {
		return "", fmt.Errorf("no device %s: %w", nm.iface, err)
	}
	return dev, nil
}
