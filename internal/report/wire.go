package report

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"auctionsim/internal/common"
	"auctionsim/internal/market"
)

var (
	ErrFrameTooShort    = errors.New("frame too short")
	ErrUnknownEvent     = errors.New("unknown event")
	ErrInvalidFrameType = errors.New("invalid frame type")
	ErrFieldTooLong     = errors.New("field too long")
)

type FrameType uint8

const (
	MarketOpenedFrame FrameType = iota
	OrderReceivedFrame
	OrderPlacedFrame
	RoundClosingFrame
	TransactionFrame
	RoundClosedFrame
	MarketClosedFrame
)

// Frame is the wire form of a market event.
type Frame struct {
	Type            FrameType   // 1 byte
	Side            common.Side // 1 byte
	Round           uint32      // 4 bytes
	Quantity        uint64      // 8 bytes
	Price           float64     // 8 bytes
	PartyLen        uint16      // 2 bytes
	CounterpartyLen uint16      // 2 bytes
	ErrStrLen       uint32      // 4 bytes
	Party           string      // n bytes (order owner, or buyer)
	Counterparty    string      // n bytes (seller)
	Err             string      // n bytes
}

// 1+1+4+8+8+2+2+4 = 30 bytes.
const frameFixedHeaderLen = 30

// NewFrame converts a market event to its wire form.
func NewFrame(event market.Event) (Frame, error) {
	switch e := event.(type) {
	case market.MarketOpened:
		return Frame{Type: MarketOpenedFrame, Round: uint32(e.Round)}, nil
	case market.OrderReceived:
		f := orderFrame(OrderReceivedFrame, e.Round, e.Order)
		if e.Err != nil {
			f.Err = e.Err.Error()
		}
		return f.sized()
	case market.OrderPlaced:
		return orderFrame(OrderPlacedFrame, e.Round, e.Order).sized()
	case market.RoundClosing:
		return Frame{Type: RoundClosingFrame, Round: uint32(e.Round)}, nil
	case market.TransactionExecuted:
		tx := e.Transaction
		return Frame{
			Type:         TransactionFrame,
			Round:        uint32(tx.Round),
			Quantity:     tx.Quantity,
			Price:        tx.Price,
			Party:        string(tx.Buyer()),
			Counterparty: string(tx.Seller()),
		}.sized()
	case market.RoundClosed:
		return Frame{Type: RoundClosedFrame, Round: uint32(e.Round)}, nil
	case market.MarketClosed:
		return Frame{Type: MarketClosedFrame, Round: uint32(e.Round)}, nil
	}
	return Frame{}, fmt.Errorf("%w: %T", ErrUnknownEvent, event)
}

func orderFrame(typeOf FrameType, round int, order *common.Order) Frame {
	return Frame{
		Type:     typeOf,
		Side:     order.Side,
		Round:    uint32(round),
		Quantity: order.Quantity,
		Price:    order.Price,
		Party:    string(order.Owner),
	}
}

// sized fills in the length fields from the strings.
func (f Frame) sized() (Frame, error) {
	if len(f.Party) > math.MaxUint16 || len(f.Counterparty) > math.MaxUint16 {
		return Frame{}, ErrFieldTooLong
	}
	f.PartyLen = uint16(len(f.Party))
	f.CounterpartyLen = uint16(len(f.Counterparty))
	f.ErrStrLen = uint32(len(f.Err))
	return f, nil
}

// Serialize converts the frame to be sent on the wire.
func (f *Frame) Serialize() []byte {
	totalSize := frameFixedHeaderLen + int(f.PartyLen) + int(f.CounterpartyLen) + int(f.ErrStrLen)

	buf := make([]byte, totalSize)
	buf[0] = byte(f.Type)
	buf[1] = byte(f.Side)
	binary.BigEndian.PutUint32(buf[2:6], f.Round)
	binary.BigEndian.PutUint64(buf[6:14], f.Quantity)
	binary.BigEndian.PutUint64(buf[14:22], math.Float64bits(f.Price))
	binary.BigEndian.PutUint16(buf[22:24], f.PartyLen)
	binary.BigEndian.PutUint16(buf[24:26], f.CounterpartyLen)
	binary.BigEndian.PutUint32(buf[26:30], f.ErrStrLen)

	offset := frameFixedHeaderLen
	offset += copy(buf[offset:], f.Party[:f.PartyLen])
	offset += copy(buf[offset:], f.Counterparty[:f.CounterpartyLen])
	copy(buf[offset:], f.Err[:f.ErrStrLen])
	return buf
}

// ParseFrame decodes a frame produced by Serialize.
func ParseFrame(msg []byte) (Frame, error) {
	if len(msg) < frameFixedHeaderLen {
		return Frame{}, ErrFrameTooShort
	}

	f := Frame{
		Type:            FrameType(msg[0]),
		Side:            common.Side(msg[1]),
		Round:           binary.BigEndian.Uint32(msg[2:6]),
		Quantity:        binary.BigEndian.Uint64(msg[6:14]),
		Price:           math.Float64frombits(binary.BigEndian.Uint64(msg[14:22])),
		PartyLen:        binary.BigEndian.Uint16(msg[22:24]),
		CounterpartyLen: binary.BigEndian.Uint16(msg[24:26]),
		ErrStrLen:       binary.BigEndian.Uint32(msg[26:30]),
	}
	if f.Type > MarketClosedFrame {
		return Frame{}, fmt.Errorf("%w: %d", ErrInvalidFrameType, f.Type)
	}

	// Calculate expected total length.
	expectedTotalLen := frameFixedHeaderLen + int(f.PartyLen) + int(f.CounterpartyLen) + int(f.ErrStrLen)
	if len(msg) < expectedTotalLen {
		return Frame{}, ErrFrameTooShort
	}
	offset := frameFixedHeaderLen
	f.Party = string(msg[offset : offset+int(f.PartyLen)])
	offset += int(f.PartyLen)
	f.Counterparty = string(msg[offset : offset+int(f.CounterpartyLen)])
	offset += int(f.CounterpartyLen)
	f.Err = string(msg[offset : offset+int(f.ErrStrLen)])
	return f, nil
}

func (t FrameType) String() string {
	switch t {
	case MarketOpenedFrame:
		return "market-opened"
	case OrderReceivedFrame:
		return "order-received"
	case OrderPlacedFrame:
		return "order-placed"
	case RoundClosingFrame:
		return "round-closing"
	case TransactionFrame:
		return "transaction"
	case RoundClosedFrame:
		return "round-closed"
	case MarketClosedFrame:
		return "market-closed"
	}
	return "unknown"
}
