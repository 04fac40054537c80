package schema

// Asset describes one side of a market pair.
type Asset struct {
	ID       AssetID `json:"id"`
	Decimals uint32  `json:"decimals"`
}

// Account holds a participant's balances in native asset units.
type Account struct {
	BaseLiquid  uint64 `json:"baseLiquid"`
	BaseLocked  uint64 `json:"baseLocked"`
	QuoteLiquid uint64 `json:"quoteLiquid"`
	QuoteLocked uint64 `json:"quoteLocked"`
}

// NewAccount mirrors the field order of the account query.
func NewAccount(baseLiquid, baseLocked, quoteLiquid, quoteLocked uint64) Account {
	return Account{
		BaseLiquid:  baseLiquid,
		BaseLocked:  baseLocked,
		QuoteLiquid: quoteLiquid,
		QuoteLocked: quoteLocked,
	}
}

// IsEmpty reports whether every balance is zero.
func (a Account) IsEmpty() bool {
	return a == Account{}
}
