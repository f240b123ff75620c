package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOrder      = errors.New("invalid order")
	ErrInvalidSide       = fmt.Errorf("%w: side not accepted by this auctioneer", ErrInvalidOrder)
	ErrDuplicateOrder    = errors.New("duplicate order")
	ErrShoutsNotVisible  = errors.New("shouts are not visible")
	ErrFatalMarketState  = errors.New("fatal market state")
	ErrUnmatchablePrices = errors.New("bid price below ask price")
	ErrInvalidK          = errors.New("k must lie in [0, 1]")
	ErrUnknownKind       = errors.New("unknown auctioneer kind")
)
