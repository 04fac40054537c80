package schema

// SchemaVersion is the current event schema version.
const SchemaVersion uint16 = 1

// EventType identifies a market operation. The same code tags the journal
// record of the command and the events the command emits.
type EventType uint16

const (
	EventUnknown EventType = iota
	EventDeposit
	EventWithdraw
	EventOpenOrder
	EventCancelOrder
	EventTrade
	EventSetEpoch
	EventSetMinOrderSize
	EventSetMinOrderPrice
	EventSetMatcherFee
	EventSetProtocolFee
	EventPause
	EventUnpause
	EventOwnership
	EventWithdrawProtocolFee
)

// MaxEventType is the highest defined event type.
const MaxEventType = EventWithdrawProtocolFee

var eventTypeNames = [...]string{
	EventUnknown:             "Unknown",
	EventDeposit:             "Deposit",
	EventWithdraw:            "Withdraw",
	EventOpenOrder:           "OpenOrder",
	EventCancelOrder:         "CancelOrder",
	EventTrade:               "Trade",
	EventSetEpoch:            "SetEpoch",
	EventSetMinOrderSize:     "SetMinOrderSize",
	EventSetMinOrderPrice:    "SetMinOrderPrice",
	EventSetMatcherFee:       "SetMatcherFee",
	EventSetProtocolFee:      "SetProtocolFee",
	EventPause:               "Pause",
	EventUnpause:             "Unpause",
	EventOwnership:           "Ownership",
	EventWithdrawProtocolFee: "WithdrawProtocolFee",
}

func (t EventType) String() string {
	if int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return "Unknown"
}

// Event is implemented by every value a market operation emits.
type Event interface {
	EventType() EventType
}

// EventHeader is the common metadata attached to every journal record and
// every published event.
type EventHeader struct {
	Type      EventType
	Version   uint16
	Flags     uint16
	Seq       uint64
	Timestamp uint64 // TAI64 seconds of the market clock
	RecvTime  int64  // unix nanos when the host accepted the call
	TraceID   uint64
}

// NewHeader builds a header with the current schema version.
func NewHeader(eventType EventType, seq uint64, timestamp uint64, recvTime int64) EventHeader {
	return EventHeader{
		Type:      eventType,
		Version:   SchemaVersion,
		Seq:       seq,
		Timestamp: timestamp,
		RecvTime:  recvTime,
	}
}
