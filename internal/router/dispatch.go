package router

import (
	"github.com/LeJamon/goLoRaRouter/internal/packet"
	"github.com/LeJamon/goLoRaRouter/internal/statechannel"
)

// Dispatch is an event sent to a running client: either an uplink packet
// or a gateway replacement.
type Dispatch interface {
	dispatch()
}

// PacketDispatch delivers an uplink packet.
type PacketDispatch struct {
	Packet *packet.Packet
}

// GatewayDispatch replaces the gateway used for channel resolution.
type GatewayDispatch struct {
	Gateway statechannel.Gateway
}

func (PacketDispatch) dispatch()  {}
func (GatewayDispatch) dispatch() {}
