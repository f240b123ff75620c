package main

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"auctionsim/internal/report"

	"github.com/gorilla/websocket"
)

func main() {
	// 1. CLI Parameter Parsing
	serverAddr := flag.String("server", "127.0.0.1:9001", "Address of the auctionsim feed")
	onlyTrades := flag.Bool("trades", false, "Only print transactions")
	flag.Parse()

	// Connect to Server
	feedURL := url.URL{Scheme: "ws", Host: *serverAddr, Path: "/feed"}
	conn, _, err := websocket.DefaultDialer.Dial(feedURL.String(), nil)
	if err != nil {
		log.Fatalf("Failed to connect to feed at %s: %v", feedURL.String(), err)
	}
	defer conn.Close()
	fmt.Printf("Connected to %s\n", feedURL.String())

	// Close cleanly on Ctrl+C so the server sees us leave.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-interrupt
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		os.Exit(0)
	}()

	readFrames(conn, *onlyTrades)
}

// readFrames continuously reads and prints frames from the feed.
func readFrames(conn *websocket.Conn, onlyTrades bool) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				log.Printf("Connection lost: %v", err)
			}
			return
		}

		frame, err := report.ParseFrame(msg)
		if err != nil {
			log.Printf("Error parsing frame: %v", err)
			continue
		}
		if onlyTrades && frame.Type != report.TransactionFrame {
			continue
		}

		switch frame.Type {
		case report.TransactionFrame:
			fmt.Printf("[TRANSACTION] round %d | Qty: %d | Price: %.2f | buyer: %s | seller: %s\n",
				frame.Round, frame.Quantity, frame.Price, frame.Party, frame.Counterparty)
		case report.OrderReceivedFrame:
			status := "ok"
			if frame.Err != "" {
				status = "REJECTED: " + frame.Err
			}
			fmt.Printf("[ORDER] round %d | %s %s %d @ %.2f | %s\n",
				frame.Round, frame.Party, strings.ToUpper(frame.Side.String()), frame.Quantity, frame.Price, status)
		case report.OrderPlacedFrame:
			// Already reported as received.
		default:
			fmt.Printf("[%s] round %d\n", strings.ToUpper(frame.Type.String()), frame.Round)
		}
	}
}
