package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/minhle/dcarank/internal/realtime/cache"
	"github.com/minhle/dcarank/pkg/logger"
)

const (
	// Reconnect settings
	reconnectDelay    = 5 * time.Second
	maxReconnectDelay = 5 * time.Minute

	// Ping/Pong settings
	pongWait  = 3 * time.Minute
	writeWait = 10 * time.Second
)

// WSFeed streams Binance futures miniTicker updates into the price cache
// ⭐ SSOT: WebSocket 시세 수신은 이 클라이언트에서만
type WSFeed struct {
	wsURL  string
	logger *logger.Logger
	cache  *cache.PriceCache

	conn   *websocket.Conn
	connMu sync.Mutex

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWSFeed creates a websocket feed for the all-market miniTicker stream
func NewWSFeed(wsURL string, priceCache *cache.PriceCache, log *logger.Logger) *WSFeed {
	return &WSFeed{
		wsURL:  wsURL + "/!miniTicker@arr",
		logger: log.WithField("module", "ws_feed"),
		cache:  priceCache,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start connects and begins streaming. The read loop reconnects with
// exponential backoff until Stop is called.
func (f *WSFeed) Start(ctx context.Context) error {
	f.logger.WithField("url", f.wsURL).Info("Starting websocket price feed")

	if err := f.connect(ctx); err != nil {
		return fmt.Errorf("initial connection failed: %w", err)
	}

	go f.readLoop(ctx)

	return nil
}

// Stop closes the connection and waits for the read loop to exit
func (f *WSFeed) Stop() {
	f.logger.Info("Stopping websocket price feed")

	close(f.stopCh)

	f.connMu.Lock()
	if f.conn != nil {
		f.conn.Close()
	}
	f.connMu.Unlock()

	<-f.doneCh
}

// connect establishes the websocket connection
func (f *WSFeed) connect(ctx context.Context) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	f.conn = conn
	return nil
}

// miniTicker is one entry of the !miniTicker@arr stream payload
type miniTicker struct {
	Symbol    string `json:"s"`
	Close     string `json:"c"`
	EventTime int64  `json:"E"`
}

// readLoop consumes stream messages until stopped, reconnecting on failure
func (f *WSFeed) readLoop(ctx context.Context) {
	defer close(f.doneCh)

	delay := reconnectDelay

	for {
		select {
		case <-f.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-f.stopCh:
				return
			case <-ctx.Done():
				return
			default:
			}

			f.logger.WithError(err).Warn("Websocket read failed, reconnecting")

			select {
			case <-time.After(delay):
			case <-f.stopCh:
				return
			case <-ctx.Done():
				return
			}

			if err := f.connect(ctx); err != nil {
				f.logger.WithError(err).Error("Websocket reconnect failed")
				delay *= 2
				if delay > maxReconnectDelay {
					delay = maxReconnectDelay
				}
				continue
			}

			delay = reconnectDelay
			continue
		}

		f.handleMessage(message)
	}
}

// handleMessage parses a miniTicker array frame and updates the cache
func (f *WSFeed) handleMessage(message []byte) {
	var tickers []miniTicker
	if err := json.Unmarshal(message, &tickers); err != nil {
		f.logger.WithError(err).Debug("Skipping unparseable stream frame")
		return
	}

	updated := 0
	for _, t := range tickers {
		price, err := strconv.ParseFloat(t.Close, 64)
		if err != nil {
			continue
		}

		at := time.UnixMilli(t.EventTime)
		if f.cache.Update(t.Symbol, price, at) {
			updated++
		}
	}

	if updated > 0 {
		f.logger.WithField("count", updated).Debug("Updated prices from stream")
	}
}
