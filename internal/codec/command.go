// Package codec defines the journaled form of market commands. A command
// is what a caller asked for; replaying the same commands against the same
// starting state rebuilds the same market.
package codec

import (
	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"

	"clob/internal/market"
	"clob/internal/schema"
	"clob/pkg/exception"
)

// Command is a market operation together with its arguments.
type Command interface {
	CommandType() schema.EventType
	Apply(m *market.Market) ([]schema.Event, error)
}

// Encode serializes cmd to its journal payload.
func Encode(cmd Command) ([]byte, error) {
	if cmd == nil {
		return nil, exception.ErrNilInstance
	}
	data, err := sonic.ConfigFastest.Marshal(cmd)
	if err != nil {
		return nil, errors.Wrap(err, "marshal command").With("type", cmd.CommandType().String())
	}
	return data, nil
}

// Decode parses a journal payload of the given type.
func Decode(t schema.EventType, payload []byte) (Command, error) {
	cmd, err := newCommand(t)
	if err != nil {
		return nil, err
	}
	if err := sonic.ConfigFastest.Unmarshal(payload, cmd); err != nil {
		return nil, errors.Wrap(err, "unmarshal command").With("type", t.String())
	}
	return deref(cmd), nil
}

func newCommand(t schema.EventType) (Command, error) {
	switch t {
	case schema.EventDeposit:
		return &Deposit{}, nil
	case schema.EventWithdraw:
		return &Withdraw{}, nil
	case schema.EventOpenOrder:
		return &OpenOrder{}, nil
	case schema.EventCancelOrder:
		return &CancelOrder{}, nil
	case schema.EventTrade:
		return &MatchOrders{}, nil
	case schema.EventSetEpoch:
		return &SetEpoch{}, nil
	case schema.EventSetMinOrderSize:
		return &SetMinOrderSize{}, nil
	case schema.EventSetMinOrderPrice:
		return &SetMinOrderPrice{}, nil
	case schema.EventSetMatcherFee:
		return &SetMatcherFee{}, nil
	case schema.EventSetProtocolFee:
		return &SetProtocolFee{}, nil
	case schema.EventPause:
		return &Pause{}, nil
	case schema.EventUnpause:
		return &Unpause{}, nil
	case schema.EventOwnership:
		return &Ownership{}, nil
	case schema.EventWithdrawProtocolFee:
		return &WithdrawProtocolFee{}, nil
	default:
		return nil, errors.Wrapf(exception.ErrUnknownCommand, "command type %d", t)
	}
}

// deref hands back commands by value so that decoded and freshly built
// commands compare equal.
func deref(cmd Command) Command {
	switch c := cmd.(type) {
	case *Deposit:
		return *c
	case *Withdraw:
		return *c
	case *OpenOrder:
		return *c
	case *CancelOrder:
		return *c
	case *MatchOrders:
		return *c
	case *SetEpoch:
		return *c
	case *SetMinOrderSize:
		return *c
	case *SetMinOrderPrice:
		return *c
	case *SetMatcherFee:
		return *c
	case *SetProtocolFee:
		return *c
	case *Pause:
		return *c
	case *Unpause:
		return *c
	case *Ownership:
		return *c
	case *WithdrawProtocolFee:
		return *c
	default:
		return cmd
	}
}
