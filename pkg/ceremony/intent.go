package ceremony

import (
	"errors"
	"strings"
)

// CallIntent is the transaction the operator wants the group to sign.
type CallIntent struct {
	Pallet string `cbor:"1,keyasint"`
	Call   string `cbor:"2,keyasint"`
	Args   string `cbor:"3,keyasint"`
}

// NewCallIntent joins trailing command line words into the argument text.
func NewCallIntent(pallet, call string, args []string) CallIntent {
	return CallIntent{Pallet: pallet, Call: call, Args: strings.Join(args, " ")}
}

func (c CallIntent) Validate() error {
	if c.Pallet == "" || c.Call == "" {
		return errors.New("pallet and call are required")
	}
	return nil
}

// Same compares intents ignoring surrounding whitespace in the arguments.
func (c CallIntent) Same(o CallIntent) bool {
	return c.Pallet == o.Pallet && c.Call == o.Call &&
		strings.TrimSpace(c.Args) == strings.TrimSpace(o.Args)
}

func (c CallIntent) String() string {
	if c.Args == "" {
		return c.Pallet + "." + c.Call
	}
	return c.Pallet + "." + c.Call + " " + c.Args
}
