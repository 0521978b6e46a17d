//go:build !linux

package serial

import (
	"github.com/google/uuid"

	"github.com/wippyai/native-bridge/errors"
)

// RFCOMM is the bluetooth serial-port transport. It is only available on
// Linux.
type RFCOMM struct{}

// NewRFCOMM returns the bluetooth transport.
func NewRFCOMM() *RFCOMM { return &RFCOMM{} }

func (*RFCOMM) Name() string { return "rfcomm" }

func (*RFCOMM) Listen(uuid.UUID, []string) (Listener, error) {
	return nil, errors.Unsupported(errors.PhaseService, "create", "rfcomm requires linux")
}
