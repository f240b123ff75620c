package engine

import (
	"fmt"

	"auctionsim/internal/common"
)

type Kind string

const (
	KindClearingHouse Kind = "clearing-house"
	KindKDouble       Kind = "k-double"
	KindContinuous    Kind = "continuous"
	KindAscending     Kind = "ascending"
)

var Kinds = []Kind{KindClearingHouse, KindKDouble, KindContinuous, KindAscending}

// Params are the resolved scalars used to build an auctioneer.
type Params struct {
	Kind Kind
	K    float64
	Options

	// Ascending only.
	Seller          common.AgentID
	ReservePrice    float64
	ReserveQuantity uint64
}

// New builds the auctioneer variant named by params.Kind.
func New(params Params) (Auctioneer, error) {
	pricing, err := NewKPricing(params.K)
	if err != nil {
		return nil, err
	}

	switch params.Kind {
	case KindClearingHouse:
		return NewClearingHouse(pricing, params.Options), nil
	case KindKDouble:
		return NewKDouble(pricing, params.Options), nil
	case KindContinuous:
		return NewContinuousDouble(pricing, params.Options), nil
	case KindAscending:
		a, err := NewAscending(pricing, params.Seller, params.ReservePrice, params.ReserveQuantity, params.Options)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, params.Kind)
}
