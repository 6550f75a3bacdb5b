package interpreter

import (
	"context"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/NotCoffee418/energy_flow_dashboard/pkg/types"
)

const (
	maxRetries     = 10
	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 60 * time.Second

	// Readings arrive every second
	readTimeout  = 10 * time.Second
	pingInterval = 30 * time.Second
)

// ListenerURL builds the interpreter API websocket address.
func ListenerURL(host string, tls bool) url.URL {
	scheme := "ws"
	if tls {
		scheme = "wss"
	}
	return url.URL{Scheme: scheme, Host: host, Path: "/ws"}
}

// StartListener manages the websocket connection to the interpreter API and
// calls handle for each reading until ctx is done or retries run out.
func StartListener(ctx context.Context, u url.URL, handle func(reading *types.MeterReading)) error {
	retryCount := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		// Calculate retry delay with exponential backoff
		retryDelay := time.Duration(1<<retryCount) * baseRetryDelay
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}

		if retryCount > 0 {
			log.Printf("Retrying connection in %v... (attempt %d/%d)", retryDelay, retryCount+1, maxRetries)
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				log.Println("Shutdown requested during retry wait")
				return nil
			}
		}

		log.Printf("Connecting to %s", u.String())

		dialer := *websocket.DefaultDialer
		dialer.HandshakeTimeout = 10 * time.Second
		c, _, err := dialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			log.Warnf("Connection failed: %v", err)
			retryCount++
			if retryCount >= maxRetries {
				log.Errorf("Max retries (%d) reached. Giving up.", maxRetries)
				return ErrMaxRetries
			}
			continue
		}

		log.Println("Connected! Accepting meter readings.")
		retryCount = 0

		// Handle the connection until it breaks or we're cancelled
		connectionBroken := handleConnection(ctx, c, handle)
		c.Close()

		if !connectionBroken {
			return nil
		}
		log.Warn("Connection lost, will retry...")
	}
}

func handleConnection(ctx context.Context, c *websocket.Conn, handle func(reading *types.MeterReading)) bool {
	done := make(chan struct{})

	c.SetReadDeadline(time.Now().Add(readTimeout))

	go func() {
		defer close(done)
		for {
			messageType, message, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
					log.Warnf("WebSocket error: %v", err)
				} else {
					log.Debugf("Connection closed: %v", err)
				}
				return
			}

			c.SetReadDeadline(time.Now().Add(readTimeout))

			if messageType != websocket.TextMessage {
				log.Debugf("Received unexpected message type: %d", messageType)
				continue
			}
			if reading := types.MeterReadingFromJsonBytes(message); reading != nil {
				handle(reading)
			} else {
				log.Warnf("Failed to parse meter reading: %s", string(message))
			}
		}
	}()

	// Periodic pings keep NAT and proxies from dropping the link
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Warnf("Failed to send ping: %v", err)
			}
		case <-done:
			return true
		case <-ctx.Done():
			log.Println("Shutdown requested, closing connection...")
			err := c.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			if err != nil {
				log.Debugf("Error sending close message: %v", err)
			}

			// Wait for close confirmation or timeout
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return false
		}
	}
}
