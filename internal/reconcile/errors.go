package reconcile

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates why a single receipt line could not be reconciled.
// None of them is fatal for the receipt; callers skip the line.
type ErrorKind string

const (
	KindBarcodeAmountNotFound          ErrorKind = "BARCODE_AMOUNT_NOT_FOUND"
	KindBarcodeQuantityUnitNotFound    ErrorKind = "BARCODE_QUANTITY_UNIT_NOT_FOUND"
	KindBarcodeQuantityUnitUnsupported ErrorKind = "BARCODE_QUANTITY_UNIT_UNSUPPORTED"
	KindTareWeightHandling             ErrorKind = "TARE_WEIGHT_HANDLING"
	KindInvalidWeight                  ErrorKind = "INVALID_WEIGHT"
	KindInvalidQuantity                ErrorKind = "INVALID_QUANTITY"
)

type Error struct {
	Kind ErrorKind
	// UnitID is set for KindBarcodeQuantityUnitUnsupported.
	UnitID int
	Err    error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindBarcodeAmountNotFound:
		msg = "expected barcode associated with its product to have an amount, but it didn't"
	case KindBarcodeQuantityUnitNotFound:
		msg = "expected barcode associated with its product to have a quantity unit, but it didn't"
	case KindBarcodeQuantityUnitUnsupported:
		msg = fmt.Sprintf("barcode's quantity unit (#%d) is not its product's stock nor purchase default", e.UnitID)
	case KindTareWeightHandling:
		msg = "product has tare weight handling enabled, which is not supported"
	case KindInvalidWeight:
		msg = "purchased weight must be positive"
	case KindInvalidQuantity:
		msg = "item count rounds to less than one unit"
	default:
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind. A target with a zero UnitID matches any unit.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.UnitID == 0 || t.UnitID == e.UnitID)
}

var (
	ErrBarcodeAmountNotFound          = &Error{Kind: KindBarcodeAmountNotFound}
	ErrBarcodeQuantityUnitNotFound    = &Error{Kind: KindBarcodeQuantityUnitNotFound}
	ErrBarcodeQuantityUnitUnsupported = &Error{Kind: KindBarcodeQuantityUnitUnsupported}
	ErrTareWeightHandling             = &Error{Kind: KindTareWeightHandling}
	ErrInvalidWeight                  = &Error{Kind: KindInvalidWeight}
	ErrInvalidQuantity                = &Error{Kind: KindInvalidQuantity}
)

// KindOf returns the reconciliation kind carried by err, or "" for other errors.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
