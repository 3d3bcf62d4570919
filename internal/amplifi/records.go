package amplifi

// UnknownAddress is the ip_address label used for stations the router
// reports without an Address.
const UnknownAddress = "unknown"

// DefaultLeaseValidity is reported for devices without a DHCP lease field,
// e.g. clients with a static address.
const DefaultLeaseValidity = -1

// StationValues are the checked fields of one wireless station.
type StationValues struct {
	IP             string
	HappinessScore float64
	MaxBandwidth   *float64 // optional
	SignalQuality  float64
	RxMcs          float64
	RxMhz          float64
	RxBitrate      float64
	RxBytes        float64
	TxMcs          float64
	TxMhz          float64
	TxBitrate      float64
	TxBytes        float64
}

// Values checks the station's required fields. The first missing one is
// returned as a RequiredFieldMissing.
func (r StationRecord) Values() (StationValues, error) {
	st := r.Station
	req := required{record: "wireless station", path: []string{r.AccessPoint, r.Band, r.NetworkType, r.MAC}}
	v := StationValues{
		IP:             UnknownAddress,
		HappinessScore: req.float("HappinessScore", st.HappinessScore),
		MaxBandwidth:   st.MaxBandwidth,
		SignalQuality:  req.float("SignalQuality", st.SignalQuality),
		RxMcs:          req.float("RxMcs", st.RxMcs),
		RxMhz:          req.float("RxMhz", st.RxMhz),
		RxBitrate:      req.float("RxBitrate", st.RxBitrate),
		RxBytes:        req.float("RxBytes", st.RxBytes),
		TxMcs:          req.float("TxMcs", st.TxMcs),
		TxMhz:          req.float("TxMhz", st.TxMhz),
		TxBitrate:      req.float("TxBitrate", st.TxBitrate),
		TxBytes:        req.float("TxBytes", st.TxBytes),
	}
	if st.Address != nil {
		v.IP = *st.Address
	}
	if req.err != nil {
		return StationValues{}, req.err
	}
	return v, nil
}

// DeviceValues are the checked fields of one connected device.
type DeviceValues struct {
	Connection    string
	IP            string
	LeaseValidity float64
}

// Values checks the device's required fields; a missing lease_validity
// becomes DefaultLeaseValidity.
func (r DeviceRecord) Values() (DeviceValues, error) {
	d := r.Device
	req := required{record: "connected device", path: []string{r.MAC}}
	v := DeviceValues{
		Connection:    req.str("connection", d.Connection),
		IP:            req.str("ip", d.IP),
		LeaseValidity: DefaultLeaseValidity,
	}
	if d.LeaseValidity != nil {
		v.LeaseValidity = *d.LeaseValidity
	}
	if req.err != nil {
		return DeviceValues{}, req.err
	}
	return v, nil
}

// PortValues are the checked fields of one ethernet port.
type PortValues struct {
	LinkUp    *bool // optional
	LinkSpeed float64
	RxBitrate float64
	TxBitrate float64
}

// Values checks the port's required fields.
func (r PortRecord) Values() (PortValues, error) {
	p := r.Info
	req := required{record: "ethernet port", path: []string{r.AccessPoint, r.Port}}
	v := PortValues{
		LinkUp:    p.Link,
		LinkSpeed: req.float("link_speed", p.LinkSpeed),
		RxBitrate: req.float("rx_bitrate", p.RxBitrate),
		TxBitrate: req.float("tx_bitrate", p.TxBitrate),
	}
	if req.err != nil {
		return PortValues{}, req.err
	}
	return v, nil
}

// required collects the first missing field of a record.
type required struct {
	record string
	path   []string
	err    error
}

func (r *required) float(field string, v *float64) float64 {
	if v == nil {
		r.miss(field)
		return 0
	}
	return *v
}

func (r *required) str(field string, v *string) string {
	if v == nil {
		r.miss(field)
		return ""
	}
	return *v
}

func (r *required) miss(field string) {
	if r.err == nil {
		r.err = &RequiredFieldMissing{Record: r.record, Path: r.path, Field: field}
	}
}
