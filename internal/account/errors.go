package account

import "fmt"

// LedgerError marks order-execution failures. The host boundary catches
// these once, aborts the run, and still reports on the partial record list.
type LedgerError interface {
	error
	ledgerError()
}

// BidTooLowError reports a buy whose bid cannot pay for even one lot.
type BidTooLowError struct {
	Code     string
	Bid      float64
	LotValue float64
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid %.2f for %s is below one lot value %.2f", e.Bid, e.Code, e.LotValue)
}

func (e *BidTooLowError) ledgerError() {}

// InsufficientFundsError reports a buy the account cannot cover.
type InsufficientFundsError struct {
	Code     string
	Cash     float64
	LotValue float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("cash %.2f cannot cover one lot of %s at lot value %.2f", e.Cash, e.Code, e.LotValue)
}

func (e *InsufficientFundsError) ledgerError() {}

// SellError reports an invalid sell: no holding, over-sell, or bad arguments.
type SellError struct {
	Code     string
	Quantity int
	Holding  int
	Reason   string
}

func (e *SellError) Error() string {
	return fmt.Sprintf("cannot sell %d lots of %s (holding %d): %s", e.Quantity, e.Code, e.Holding, e.Reason)
}

func (e *SellError) ledgerError() {}

// CanNotSplitShareError reports a ratio sell that resolves to less than one
// whole lot.
type CanNotSplitShareError struct {
	Code    string
	Holding int
	Ratio   float64
}

func (e *CanNotSplitShareError) Error() string {
	return fmt.Sprintf("cannot split %d lot(s) of %s by ratio %.4f into a whole lot", e.Holding, e.Code, e.Ratio)
}

func (e *CanNotSplitShareError) ledgerError() {}
