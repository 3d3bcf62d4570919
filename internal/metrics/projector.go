package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/obsidianstack/amplifi-exporter/internal/amplifi"
)

// Observation is one gauge update. Absent observations remove the label set
// instead of setting a value.
type Observation struct {
	Series *Series
	Tags   prometheus.Labels
	Value  float64
	Absent bool
}

// Projector maps snapshots onto a Registry. It must be the registry's only
// writer.
type Projector struct {
	reg *Registry
}

// NewProjector returns a Projector writing to reg.
func NewProjector(reg *Registry) *Projector {
	return &Projector{reg: reg}
}

// Project applies one snapshot.
//
// Each section (wireless stations, DHCP leases, ethernet ports) is fully
// checked before any of its observations is committed, so a record with a
// missing required field leaves that section untouched and the error is
// returned. Lease validity is reset before being re-observed because its
// population of devices changes between polls.
func (p *Projector) Project(snap *amplifi.Snapshot) error {
	stations, err := p.stationObservations(snap.Stations())
	if err != nil {
		return err
	}
	if err := p.commit(stations); err != nil {
		return err
	}

	leases, err := p.leaseObservations(snap.ConnectedDevices())
	if err != nil {
		return err
	}
	p.reg.DeviceLeaseValidity.Reset()
	if err := p.commit(leases); err != nil {
		return err
	}

	ports, err := p.portObservations(snap.Ports())
	if err != nil {
		return err
	}
	return p.commit(ports)
}

func (p *Projector) stationObservations(records []amplifi.StationRecord) ([]Observation, error) {
	r := p.reg
	out := make([]Observation, 0, len(records)*11)
	for _, rec := range records {
		v, err := rec.Values()
		if err != nil {
			return nil, err
		}
		tags := prometheus.Labels{
			LabelIPAddress:   v.IP,
			LabelMACAddress:  rec.MAC,
			LabelAccessPoint: rec.AccessPoint,
			LabelBand:        rec.Band,
			LabelNetworkType: rec.NetworkType,
		}
		maxBandwidth := Observation{Series: r.DeviceMaxBandwidth, Tags: tags, Absent: true}
		if v.MaxBandwidth != nil {
			maxBandwidth = Observation{Series: r.DeviceMaxBandwidth, Tags: tags, Value: *v.MaxBandwidth}
		}
		out = append(out,
			Observation{Series: r.DeviceHappinessScore, Tags: tags, Value: v.HappinessScore},
			maxBandwidth,
			Observation{Series: r.DeviceSignalQuality, Tags: tags, Value: v.SignalQuality},
			Observation{Series: r.DeviceRxMcs, Tags: tags, Value: v.RxMcs},
			Observation{Series: r.DeviceRxMhz, Tags: tags, Value: v.RxMhz},
			Observation{Series: r.DeviceRxBitrate, Tags: tags, Value: v.RxBitrate},
			Observation{Series: r.DeviceRxBytes, Tags: tags, Value: v.RxBytes},
			Observation{Series: r.DeviceTxMcs, Tags: tags, Value: v.TxMcs},
			Observation{Series: r.DeviceTxMhz, Tags: tags, Value: v.TxMhz},
			Observation{Series: r.DeviceTxBitrate, Tags: tags, Value: v.TxBitrate},
			Observation{Series: r.DeviceTxBytes, Tags: tags, Value: v.TxBytes},
		)
	}
	return out, nil
}

func (p *Projector) leaseObservations(records []amplifi.DeviceRecord) ([]Observation, error) {
	out := make([]Observation, 0, len(records))
	for _, rec := range records {
		v, err := rec.Values()
		if err != nil {
			return nil, err
		}
		out = append(out, Observation{
			Series: p.reg.DeviceLeaseValidity,
			Tags: prometheus.Labels{
				LabelConnection: v.Connection,
				LabelMACAddress: rec.MAC,
				LabelIPAddress:  v.IP,
			},
			Value: v.LeaseValidity,
		})
	}
	return out, nil
}

func (p *Projector) portObservations(records []amplifi.PortRecord) ([]Observation, error) {
	r := p.reg
	out := make([]Observation, 0, len(records)*4)
	for _, rec := range records {
		v, err := rec.Values()
		if err != nil {
			return nil, err
		}
		tags := prometheus.Labels{
			LabelAccessPoint:  rec.AccessPoint,
			LabelEthernetPort: rec.Port,
		}
		linkUp := Observation{Series: r.EthernetLinkUp, Tags: tags, Absent: true}
		if v.LinkUp != nil {
			linkUp = Observation{Series: r.EthernetLinkUp, Tags: tags, Value: boolGauge(*v.LinkUp)}
		}
		out = append(out,
			Observation{Series: r.EthernetLinkSpeed, Tags: tags, Value: v.LinkSpeed},
			linkUp,
			Observation{Series: r.EthernetRxBitrate, Tags: tags, Value: v.RxBitrate},
			Observation{Series: r.EthernetTxBitrate, Tags: tags, Value: v.TxBitrate},
		)
	}
	return out, nil
}

func (p *Projector) commit(obs []Observation) error {
	for _, o := range obs {
		if o.Absent {
			o.Series.Forget(o.Tags)
			continue
		}
		if err := o.Series.Observe(o.Value, o.Tags); err != nil {
			return fmt.Errorf("metrics: commit: %w", err)
		}
	}
	return nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
