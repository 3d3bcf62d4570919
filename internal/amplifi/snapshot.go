package amplifi

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// snapshotEntries is the fixed length of the info-async.php do=full array.
const snapshotEntries = 6

// Snapshot is one decoded do=full response.
//
// Only the records projected to metrics are typed. Topology, port
// assignments and discovery are kept as raw JSON so schema drift in data
// nobody reads cannot break a poll.
type Snapshot struct {
	Topology json.RawMessage // [0] mesh topology tree

	// Wireless is [1]: access point -> band -> network type -> station MAC.
	Wireless map[string]map[string]map[string]map[string]WirelessStation

	// Devices is [2]: connected device MAC -> connection record.
	Devices map[string]ConnectedDevice

	PortAssignments json.RawMessage // [3] MAC -> wired port index

	// EthernetPorts is [4]: access point -> port name ("eth-0") -> summary.
	EthernetPorts map[string]map[string]EthernetPort

	Discovery json.RawMessage // [5] discovered devices and bonjour services
}

// WirelessStation is the per-station radio record. Pointer fields are nil
// when the router omitted the key (or sent null).
type WirelessStation struct {
	Address        *string  `json:"Address"`
	HappinessScore *float64 `json:"HappinessScore"`
	MaxBandwidth   *float64 `json:"MaxBandwidth"`
	SignalQuality  *float64 `json:"SignalQuality"`
	RxMcs          *float64 `json:"RxMcs"`
	RxMhz          *float64 `json:"RxMhz"`
	RxBitrate      *float64 `json:"RxBitrate"`
	RxBytes        *float64 `json:"RxBytes"`
	TxMcs          *float64 `json:"TxMcs"`
	TxMhz          *float64 `json:"TxMhz"`
	TxBitrate      *float64 `json:"TxBitrate"`
	TxBytes        *float64 `json:"TxBytes"`
}

// ConnectedDevice is one entry of the connected-device list. Port is only
// reported for ethernet clients.
type ConnectedDevice struct {
	Connection    *string  `json:"connection"`
	IP            *string  `json:"ip"`
	LeaseValidity *float64 `json:"lease_validity"`
}

// EthernetPort is the wired interface summary of one access point port.
type EthernetPort struct {
	Link      *bool    `json:"link"`
	LinkSpeed *float64 `json:"link_speed"`
	RxBitrate *float64 `json:"rx_bitrate"`
	TxBitrate *float64 `json:"tx_bitrate"`
}

// DecodeSnapshot parses a do=full response body. A body that is not JSON,
// not an array, or an array of the wrong length is a DecodeError. A type
// mismatch inside a consumed entry is a SchemaError.
func DecodeSnapshot(body []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		var se *SchemaError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, &DecodeError{Err: err}
	}
	return &snap, nil
}

// UnmarshalJSON decodes the positional six-entry array.
func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != snapshotEntries {
		return fmt.Errorf("expected %d entries, got %d", snapshotEntries, len(raw))
	}

	var out Snapshot
	out.Topology = raw[0]
	if err := decodeEntry(raw, 1, "wireless stats", &out.Wireless); err != nil {
		return err
	}
	if err := decodeEntry(raw, 2, "connected devices", &out.Devices); err != nil {
		return err
	}
	out.PortAssignments = raw[3]
	if err := decodeEntry(raw, 4, "ethernet ports", &out.EthernetPorts); err != nil {
		return err
	}
	out.Discovery = raw[5]

	*s = out
	return nil
}

// decodeEntry unmarshals raw[i] into v. The outer array already parsed, so
// the entry is valid JSON and a failure means its shape changed.
func decodeEntry(raw []json.RawMessage, i int, name string, v any) error {
	err := json.Unmarshal(raw[i], v)
	if err == nil {
		return nil
	}
	var te *json.UnmarshalTypeError
	if errors.As(err, &te) {
		return &SchemaError{Entry: i, Name: name, Err: err}
	}
	return fmt.Errorf("entry %d (%s): %w", i, name, err)
}

// StationRecord is a wireless station together with its position in the
// snapshot tree.
type StationRecord struct {
	AccessPoint string
	Band        string
	NetworkType string
	MAC         string
	Station     WirelessStation
}

// DeviceRecord is a connected device keyed by its MAC address.
type DeviceRecord struct {
	MAC    string
	Device ConnectedDevice
}

// PortRecord is an ethernet port summary keyed by access point and port.
type PortRecord struct {
	AccessPoint string
	Port        string
	Info        EthernetPort
}

// Stations flattens the wireless tree into records sorted by path.
func (s *Snapshot) Stations() []StationRecord {
	var out []StationRecord
	for _, ap := range sortedKeys(s.Wireless) {
		bands := s.Wireless[ap]
		for _, band := range sortedKeys(bands) {
			networks := bands[band]
			for _, network := range sortedKeys(networks) {
				stations := networks[network]
				for _, mac := range sortedKeys(stations) {
					out = append(out, StationRecord{
						AccessPoint: ap,
						Band:        band,
						NetworkType: network,
						MAC:         mac,
						Station:     stations[mac],
					})
				}
			}
		}
	}
	return out
}

// ConnectedDevices returns the device list sorted by MAC.
func (s *Snapshot) ConnectedDevices() []DeviceRecord {
	out := make([]DeviceRecord, 0, len(s.Devices))
	for _, mac := range sortedKeys(s.Devices) {
		out = append(out, DeviceRecord{MAC: mac, Device: s.Devices[mac]})
	}
	return out
}

// Ports flattens the ethernet port summaries sorted by access point and port.
func (s *Snapshot) Ports() []PortRecord {
	var out []PortRecord
	for _, ap := range sortedKeys(s.EthernetPorts) {
		ports := s.EthernetPorts[ap]
		for _, port := range sortedKeys(ports) {
			out = append(out, PortRecord{AccessPoint: ap, Port: port, Info: ports[port]})
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
