package exception

import "github.com/yanun0323/errors"

// Market errors. Messages are kept equal to the error names so callers can
// surface them verbatim.
var (
	ErrInvalidAsset        = errors.New("InvalidAsset")
	ErrPaused              = errors.New("Paused")
	ErrOrderTooSmall       = errors.New("OrderTooSmall")
	ErrPriceTooLow         = errors.New("PriceTooLow")
	ErrOrderNotFound       = errors.New("OrderNotFound")
	ErrNotOwner            = errors.New("NotOwner")
	ErrOrdersCantBeMatched = errors.New("OrdersCantBeMatched")
	ErrInsufficientBalance = errors.New("InsufficientBalance")
	ErrInvalidFeeSchedule  = errors.New("InvalidFeeSchedule")
)

var (
	ErrInvalidAmount      = errors.New("InvalidAmount")
	ErrArithmeticOverflow = errors.New("ArithmeticOverflow")
)
