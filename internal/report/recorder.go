package report

import (
	"auctionsim/internal/common"
	"auctionsim/internal/market"
)

// RoundStats counts order flow in one round. Received includes rejected
// orders, so Received - Placed is the number of rejections.
type RoundStats struct {
	Received     int
	Placed       int
	Transactions int
	Volume       uint64
}

// Recorder keeps every transaction and per-round order statistics in memory.
type Recorder struct {
	transactions []common.Transaction
	rounds       map[int]*RoundStats
	day          int
	days         []map[int]*RoundStats
}

func NewRecorder() *Recorder {
	return &Recorder{rounds: make(map[int]*RoundStats)}
}

func (r *Recorder) round(n int) *RoundStats {
	stats, ok := r.rounds[n]
	if !ok {
		stats = &RoundStats{}
		r.rounds[n] = stats
	}
	return stats
}

func (r *Recorder) OnEvent(event market.Event) error {
	switch e := event.(type) {
	case market.MarketOpened:
		if len(r.rounds) > 0 {
			r.days = append(r.days, r.rounds)
			r.rounds = make(map[int]*RoundStats)
			r.day++
		}
	case market.OrderReceived:
		r.round(e.Round).Received++
	case market.OrderPlaced:
		r.round(e.Round).Placed++
	case market.TransactionExecuted:
		stats := r.round(e.Transaction.Round)
		stats.Transactions++
		stats.Volume += e.Transaction.Quantity
		r.transactions = append(r.transactions, e.Transaction)
	}
	return nil
}

// Transactions returns every recorded transaction across all days.
func (r *Recorder) Transactions() []common.Transaction { return r.transactions }

// Round returns the statistics of a round of the current day.
func (r *Recorder) Round(n int) RoundStats {
	if stats, ok := r.rounds[n]; ok {
		return *stats
	}
	return RoundStats{}
}

// Totals sums the round statistics over every day.
func (r *Recorder) Totals() RoundStats {
	var total RoundStats
	for _, day := range append(r.days, r.rounds) {
		for _, stats := range day {
			total.Received += stats.Received
			total.Placed += stats.Placed
			total.Transactions += stats.Transactions
			total.Volume += stats.Volume
		}
	}
	return total
}

// MeanPrice is the volume weighted average transaction price, zero when
// nothing traded.
func (r *Recorder) MeanPrice() float64 {
	var value float64
	var volume uint64
	for _, tx := range r.transactions {
		value += tx.Value()
		volume += tx.Quantity
	}
	if volume == 0 {
		return 0
	}
	return value / float64(volume)
}

// Day is the zero based index of the current day.
func (r *Recorder) Day() int { return r.day }

var _ market.Listener = (*Recorder)(nil)
