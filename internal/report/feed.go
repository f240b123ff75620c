package report

import (
	"net/http"
	"time"

	"auctionsim/internal/market"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	defaultFeedBuffer = 256
	feedWriteTimeout  = time.Second
)

// Feed streams market events to websocket subscribers as binary frames. It
// is a market listener on one side and an http.Handler on the other.
type Feed struct {
	hub      *hub[[]byte]
	upgrader websocket.Upgrader
	buffer   int
}

func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = defaultFeedBuffer
	}
	return &Feed{
		hub:      newHub[[]byte](),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		buffer:   buffer,
	}
}

// OnEvent encodes the event and hands it to every subscriber without
// blocking the market.
func (f *Feed) OnEvent(event market.Event) error {
	frame, err := NewFrame(event)
	if err != nil {
		return err
	}
	f.hub.Broadcast(frame.Serialize())
	return nil
}

// Subscribers is the number of connected clients.
func (f *Feed) Subscribers() int { return f.hub.Len() }

// Close disconnects every subscriber.
func (f *Feed) Close() { f.hub.Close() }

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Str("address", r.RemoteAddr).Msg("unable to upgrade feed connection")
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Error().Err(err).Str("address", r.RemoteAddr).Msg("unable to close feed connection")
		}
	}()

	sub := f.hub.Subscribe(f.buffer)
	defer f.hub.Unsubscribe(sub)
	log.Info().Str("address", r.RemoteAddr).Msg("feed subscriber added")

	// Clients never send; reading only notices them going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			log.Info().Str("address", r.RemoteAddr).Msg("feed subscriber left")
			return
		case frame, ok := <-sub.ch:
			if !ok {
				_ = conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "feed closed"),
					time.Now().Add(feedWriteTimeout),
				)
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(feedWriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				log.Error().Err(err).Str("address", r.RemoteAddr).Msg("error writing to feed subscriber")
				return
			}
		}
	}
}

var (
	_ market.Listener = (*Feed)(nil)
	_ http.Handler    = (*Feed)(nil)
)
