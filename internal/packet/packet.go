// Package packet defines the radio packets routed through a state channel.
package packet

import (
	"crypto/sha256"
)

// BytesPerDC is the payload size covered by one data credit.
const BytesPerDC = 24

// Type is the radio packet type.
type Type int32

const (
	TypeLoRa Type = iota
)

// EUI identifies a device joining the network.
type EUI struct {
	DevEUI uint64 `codec:"deveui" json:"dev_eui"`
	AppEUI uint64 `codec:"appeui" json:"app_eui"`
}

// RoutingInformation tells the router which device a packet belongs to.
// Exactly one of DevAddr or EUI is set.
type RoutingInformation struct {
	DevAddr *uint32 `codec:"devaddr,omitempty" json:"devaddr,omitempty"`
	EUI     *EUI    `codec:"eui,omitempty" json:"eui,omitempty"`
}

// Window is a downlink receive window.
type Window struct {
	Timestamp uint64  `codec:"timestamp" json:"timestamp"`
	Frequency float32 `codec:"frequency" json:"frequency"`
	Datarate  string  `codec:"datarate" json:"datarate"`
}

// Packet is an uplink or downlink radio packet.
type Packet struct {
	OUI            uint32              `codec:"oui" json:"oui"`
	Type           Type                `codec:"type" json:"type"`
	Payload        []byte              `codec:"payload" json:"payload"`
	Timestamp      uint64              `codec:"timestamp" json:"timestamp"`
	SignalStrength float32             `codec:"signal_strength" json:"signal_strength"`
	SNR            float32             `codec:"snr" json:"snr"`
	Frequency      float32             `codec:"frequency" json:"frequency"`
	Datarate       string              `codec:"datarate" json:"datarate"`
	Routing        *RoutingInformation `codec:"routing,omitempty" json:"routing,omitempty"`
	RxWindow       *Window             `codec:"rx1_window,omitempty" json:"rx1_window,omitempty"`
	// Immediate requests transmission without waiting for a window.
	Immediate bool `codec:"immediate,omitempty" json:"immediate,omitempty"`
}

// Hash returns the SHA-256 of the packet payload. Offers, purchases and
// rejects reference packets by this hash.
func (p *Packet) Hash() []byte {
	h := sha256.Sum256(p.Payload)
	return h[:]
}

// DCs returns the data credits required to forward the packet.
func (p *Packet) DCs() uint64 {
	n := uint64(len(p.Payload))
	dcs := (n + BytesPerDC - 1) / BytesPerDC
	if dcs == 0 {
		return 1
	}
	return dcs
}

// Clone returns a deep copy of the packet.
func (p *Packet) Clone() *Packet {
	if p == nil {
		return nil
	}
	out := *p
	out.Payload = append([]byte(nil), p.Payload...)
	if p.Routing != nil {
		routing := *p.Routing
		if p.Routing.DevAddr != nil {
			addr := *p.Routing.DevAddr
			routing.DevAddr = &addr
		}
		if p.Routing.EUI != nil {
			eui := *p.Routing.EUI
			routing.EUI = &eui
		}
		out.Routing = &routing
	}
	if p.RxWindow != nil {
		window := *p.RxWindow
		out.RxWindow = &window
	}
	return &out
}
