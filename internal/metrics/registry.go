package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every series name.
const Namespace = "amplifi"

// Label names.
const (
	LabelIPAddress    = "ip_address"
	LabelMACAddress   = "mac_address"
	LabelAccessPoint  = "access_point"
	LabelBand         = "band"
	LabelNetworkType  = "network_type"
	LabelConnection   = "connection"
	LabelEthernetPort = "ethernet_port"
)

var (
	stationLabels = []string{LabelIPAddress, LabelMACAddress, LabelAccessPoint, LabelBand, LabelNetworkType}
	leaseLabels   = []string{LabelConnection, LabelMACAddress, LabelIPAddress}
	portLabels    = []string{LabelAccessPoint, LabelEthernetPort}
)

// Series is one gauge definition and its current label sets. Observe and
// Reset are safe to call while the registry is being gathered.
type Series struct {
	Name   string
	Help   string
	Labels []string
	vec    *prometheus.GaugeVec
}

func newSeries(name, help string, labels []string) *Series {
	return &Series{
		Name:   prometheus.BuildFQName(Namespace, "", name),
		Help:   help,
		Labels: labels,
		vec: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      name,
			Help:      help,
		}, labels),
	}
}

// Observe sets the gauge for tags, replacing any previous value. tags must
// carry exactly the series' label names.
func (s *Series) Observe(value float64, tags prometheus.Labels) error {
	g, err := s.vec.GetMetricWith(tags)
	if err != nil {
		return fmt.Errorf("metrics: observe %s: %w", s.Name, err)
	}
	g.Set(value)
	return nil
}

// Forget drops the label set so the series is absent from the exposition.
func (s *Series) Forget(tags prometheus.Labels) bool {
	return s.vec.Delete(tags)
}

// Reset drops every label set of the series.
func (s *Series) Reset() {
	s.vec.Reset()
}

// Registry is the process-wide set of gauges, created once at startup.
type Registry struct {
	reg *prometheus.Registry

	DeviceHappinessScore *Series
	DeviceMaxBandwidth   *Series
	DeviceSignalQuality  *Series
	DeviceRxMcs          *Series
	DeviceRxMhz          *Series
	DeviceRxBitrate      *Series
	DeviceRxBytes        *Series
	DeviceTxMcs          *Series
	DeviceTxMhz          *Series
	DeviceTxBitrate      *Series
	DeviceTxBytes        *Series

	DeviceLeaseValidity *Series

	EthernetLinkSpeed *Series
	EthernetLinkUp    *Series
	EthernetRxBitrate *Series
	EthernetTxBitrate *Series
}

// NewRegistry defines and registers all series.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		DeviceHappinessScore: newSeries("device_happiness_score", "Device Happiness Score", stationLabels),
		DeviceMaxBandwidth:   newSeries("device_max_bandwidth", "Device Max Bandwidth", stationLabels),
		DeviceSignalQuality:  newSeries("device_signal_quality", "Device Signal Quality", stationLabels),
		DeviceRxMcs:          newSeries("device_rx_mcs", "Device Modulation and Coding Scheme (rx)", stationLabels),
		DeviceRxMhz:          newSeries("device_rx_mhz", "Device MHz (rx)", stationLabels),
		DeviceRxBitrate:      newSeries("device_rx_bitrate", "Device rx Bitrate", stationLabels),
		DeviceRxBytes:        newSeries("device_rx_bytes", "Device Bytes Received", stationLabels),
		DeviceTxMcs:          newSeries("device_tx_mcs", "Device Modulation and Coding Scheme (tx)", stationLabels),
		DeviceTxMhz:          newSeries("device_tx_mhz", "Device MHz (tx)", stationLabels),
		DeviceTxBitrate:      newSeries("device_tx_bitrate", "Device tx Bitrate", stationLabels),
		DeviceTxBytes:        newSeries("device_tx_bytes", "Device Bytes Sent", stationLabels),

		DeviceLeaseValidity: newSeries("device_lease_validity", "Time left on DHCP lease", leaseLabels),

		EthernetLinkSpeed: newSeries("ethernet_port_link_speed", "Ethernet Port Link Speed", portLabels),
		EthernetLinkUp:    newSeries("ethernet_port_link_up", "Ethernet Port Link State (1 up, 0 down)", portLabels),
		EthernetRxBitrate: newSeries("ethernet_port_rx_bitrate", "Ethernet Port Bitrate for Receiving", portLabels),
		EthernetTxBitrate: newSeries("ethernet_port_tx_bitrate", "Ethernet Port Bitrate for Sending", portLabels),
	}
	for _, s := range r.Series() {
		r.reg.MustRegister(s.vec)
	}
	return r
}

// Series returns every series in definition order.
func (r *Registry) Series() []*Series {
	return []*Series{
		r.DeviceHappinessScore,
		r.DeviceMaxBandwidth,
		r.DeviceSignalQuality,
		r.DeviceRxMcs,
		r.DeviceRxMhz,
		r.DeviceRxBitrate,
		r.DeviceRxBytes,
		r.DeviceTxMcs,
		r.DeviceTxMhz,
		r.DeviceTxBitrate,
		r.DeviceTxBytes,
		r.DeviceLeaseValidity,
		r.EthernetLinkSpeed,
		r.EthernetLinkUp,
		r.EthernetRxBitrate,
		r.EthernetTxBitrate,
	}
}

// Gatherer exposes the registry to an exposition handler.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
