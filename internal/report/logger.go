package report

import (
	"auctionsim/internal/market"

	"github.com/rs/zerolog"
)

// Logger writes market events to a zerolog logger. Order flow is logged at
// debug, transactions and round boundaries at info.
type Logger struct {
	log zerolog.Logger
}

func NewLogger(log zerolog.Logger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) OnEvent(event market.Event) error {
	switch e := event.(type) {
	case market.MarketOpened:
		l.log.Info().Msg("market opened")
	case market.OrderReceived:
		ev := l.log.Debug().
			Int("round", e.Round).
			Str("agent", string(e.Order.Owner)).
			Str("side", e.Order.Side.String()).
			Float64("price", e.Order.Price).
			Uint64("quantity", e.Order.Quantity)
		if e.Err != nil {
			ev = ev.Err(e.Err)
		}
		ev.Msg("order received")
	case market.OrderPlaced:
		l.log.Debug().
			Int("round", e.Round).
			Str("uuid", e.Order.UUID).
			Msg("order placed")
	case market.TransactionExecuted:
		tx := e.Transaction
		l.log.Info().
			Int("round", tx.Round).
			Str("buyer", string(tx.Buyer())).
			Str("seller", string(tx.Seller())).
			Float64("price", tx.Price).
			Uint64("quantity", tx.Quantity).
			Msg("transaction executed")
	case market.RoundClosed:
		l.log.Debug().Int("round", e.Round).Msg("round closed")
	case market.MarketClosed:
		l.log.Info().Int("rounds", e.Round).Msg("market closed")
	}
	return nil
}

var _ market.Listener = (*Logger)(nil)
