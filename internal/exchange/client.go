// Package exchange hosts the websocket session against the Deriv API and the tick collection window.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"derivbot-go/internal/signal"
	"derivbot-go/internal/trace"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultKeepalive      = 15 * time.Second
	writeWait             = 5 * time.Second
	releaseTimeout        = 2 * time.Second
	inboundBuffer         = 64
)

// Client owns one websocket connection for the lifetime of a cycle. Requests are strictly
// sequential: a new request is written only after the previous response, error or timeout.
type Client struct {
	conn      *websocket.Conn
	log       zerolog.Logger
	dialer    *websocket.Dialer
	timeout   time.Duration
	keepalive time.Duration

	state atomic.Int32

	mu  sync.Mutex
	seq int64
	sub *Subscription

	inbound   chan Message
	done      chan struct{}
	readErr   error
	closing   chan struct{}
	closeOnce sync.Once
}

// Option configures Client construction parameters.
type Option func(*Client)

// WithRequestTimeout bounds every request/response round trip.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithKeepalive overrides the ping interval. The read deadline is twice the interval.
func WithKeepalive(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.keepalive = d
		}
	}
}

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// Endpoint appends the app_id query parameter to a websocket base URL.
func Endpoint(base string, appID int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("app_id", strconv.Itoa(appID))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial opens the connection and returns a session in the Connecting state.
func Dial(ctx context.Context, endpoint string, appID int, log zerolog.Logger, opts ...Option) (*Client, error) {
	c := &Client{
		log:       log.With().Str("component", "session").Logger(),
		dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		timeout:   defaultRequestTimeout,
		keepalive: defaultKeepalive,
		inbound:   make(chan Message, inboundBuffer),
		done:      make(chan struct{}),
		closing:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	target, err := Endpoint(endpoint, appID)
	if err != nil {
		return nil, err
	}

	c.state.Store(int32(Connecting))
	ctx, span := trace.StartSpan(ctx, "session.dial")
	conn, _, err := c.dialer.DialContext(ctx, target, nil)
	if err != nil {
		err = fmt.Errorf("%w: dial: %w", ErrConnectionInterrupted, err)
		trace.End(span, err)
		c.state.Store(int32(Closed))
		return nil, err
	}
	trace.End(span, nil)
	c.conn = conn

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(c.readTimeout()))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.readTimeout()))
		return nil
	})

	go c.readLoop()
	go c.pingLoop()

	c.log.Info().Str("endpoint", endpoint).Msg("connected")
	return c, nil
}

// State reports the current lifecycle position.
func (c *Client) State() State { return State(c.state.Load()) }

func (c *Client) readTimeout() time.Duration { return 2 * c.keepalive }

func (c *Client) advance(to State) {
	for {
		cur := c.state.Load()
		if State(cur) >= to {
			return
		}
		if c.state.CompareAndSwap(cur, int32(to)) {
			return
		}
	}
}

func (c *Client) require(op string, from, to State) error {
	st := c.State()
	if st == Closed {
		return ErrClosed
	}
	if !st.allowed(from, to) {
		return fmt.Errorf("%w: %s in state %s", ErrOutOfOrder, op, st)
	}
	return nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.readErr = err
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.readTimeout()))

		msg, err := Decode(data)
		if err != nil {
			c.log.Warn().Err(err).Msg("drop inbound message")
			continue
		}
		select {
		case c.inbound <- msg:
		case <-c.closing:
			return
		}
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(c.keepalive)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.log.Warn().Err(err).Msg("ping failed")
				return
			}
		case <-c.closing:
			return
		case <-c.done:
			return
		}
	}
}

// next waits for the following inbound message.
func (c *Client) next(ctx context.Context) (Message, error) {
	select {
	case msg := <-c.inbound:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		select {
		case msg := <-c.inbound:
			return msg, nil
		default:
		}
		return nil, c.interrupted()
	}
}

func (c *Client) interrupted() error {
	if c.readErr == nil || c.State() == Closed {
		return ErrClosed
	}
	return fmt.Errorf("%w: %w", ErrConnectionInterrupted, c.readErr)
}

func (c *Client) send(req any) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("%w: write: %w", ErrConnectionInterrupted, err)
	}
	return nil
}

// roundTrip writes one request and waits for the response of kind want. Callers hold c.mu.
func (c *Client) roundTrip(parent context.Context, op string, want Kind, build func(reqID int64) any) (Message, error) {
	c.seq++
	reqID := c.seq

	parent, span := trace.StartSpan(parent, "session."+op, attribute.Int64("req_id", reqID))
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	msg, err := c.await(ctx, op, reqID, want, build(reqID))
	if err != nil && parent.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %s after %s", ErrRequestTimeout, op, c.timeout)
	}
	trace.End(span, err)
	return msg, err
}

func (c *Client) await(ctx context.Context, op string, reqID int64, want Kind, req any) (Message, error) {
	if err := c.send(req); err != nil {
		return nil, err
	}
	for {
		msg, err := c.next(ctx)
		if err != nil {
			return nil, err
		}
		if id := msg.RequestID(); id != 0 && id != reqID {
			c.log.Debug().Str("kind", string(msg.Kind())).Int64("req_id", id).Str("awaiting", op).Msg("skip unrelated message")
			continue
		}
		if em, ok := msg.(*ErrorMessage); ok {
			if em.RequestID() == reqID || em.Op == op {
				return nil, em.asError(op)
			}
			continue
		}
		if msg.Kind() == want {
			return msg, nil
		}
		c.log.Debug().Str("kind", string(msg.Kind())).Str("awaiting", op).Msg("skip unrelated message")
	}
}

// Authorize sends the API token. A rejection unwraps to ErrAuth.
func (c *Client) Authorize(ctx context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.require(opAuthorize, Connecting, Connecting); err != nil {
		return err
	}

	msg, err := c.roundTrip(ctx, opAuthorize, KindAuthorize, func(id int64) any {
		return authorizeRequest{Authorize: token, ReqID: id}
	})
	if err != nil {
		return err
	}
	acct := msg.(*AuthorizeMessage)
	c.advance(Authenticated)
	c.log.Info().Str("loginid", acct.LoginID).Str("currency", acct.Currency).Float64("balance", acct.Balance).Msg("authorized")
	return nil
}

// History fetches the latest count samples at granularity and folds them into a candle:
// the first price opens it, the last closes it.
func (c *Client) History(ctx context.Context, symbol string, granularity time.Duration, count int) (signal.Candle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.require(opHistory, Authenticated, HistoryFetched); err != nil {
		return signal.Candle{}, err
	}

	msg, err := c.roundTrip(ctx, opHistory, KindHistory, func(id int64) any {
		return historyRequest{
			TicksHistory:    symbol,
			AdjustStartTime: 1,
			Count:           count,
			End:             "latest",
			Granularity:     int(granularity / time.Second),
			ReqID:           id,
		}
	})
	if err != nil {
		return signal.Candle{}, err
	}
	hist := msg.(*HistoryMessage)
	candle := signal.Candle{
		Symbol:      symbol,
		Open:        hist.Prices[0],
		Close:       hist.Prices[len(hist.Prices)-1],
		Granularity: granularity,
		Samples:     len(hist.Prices),
	}
	c.advance(HistoryFetched)
	c.log.Info().Str("symbol", symbol).Dur("granularity", granularity).Float64("open", candle.Open).Float64("close", candle.Close).Msg("candle")
	return candle, nil
}

// SubscribeTicks starts the tick stream for symbol. The first push also serves as the subscription
// response, so the request is written without waiting and the handle reads the stream.
func (c *Client) SubscribeTicks(ctx context.Context, symbol string) (*Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.require(opTicks, Authenticated, HistoryFetched); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	c.seq++
	sub := &Subscription{client: c, symbol: symbol, reqID: c.seq}
	if err := c.send(ticksRequest{Ticks: symbol, Subscribe: 1, ReqID: sub.reqID}); err != nil {
		return nil, err
	}
	c.sub = sub
	c.advance(Subscribed)
	c.log.Info().Str("symbol", symbol).Msg("subscribed to ticks")
	return sub, nil
}

// Unsubscribe ends the tick stream. Releasing an already released handle is a no-op.
func (c *Client) Unsubscribe(ctx context.Context, sub *Subscription) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub == nil || sub.Released() {
		return nil
	}
	if c.State() == Closed {
		return ErrClosed
	}
	if err := c.forget(ctx, sub); err != nil {
		return err
	}
	c.advance(Deciding)
	return nil
}

func (c *Client) forget(ctx context.Context, sub *Subscription) error {
	_, err := c.roundTrip(ctx, opForgetAll, KindForgetAll, func(id int64) any {
		return forgetAllRequest{ForgetAll: opTicks, ReqID: id}
	})
	if err != nil {
		return err
	}
	sub.released.Store(true)
	if c.sub == sub {
		c.sub = nil
	}
	c.log.Debug().Str("symbol", sub.symbol).Msg("tick subscription released")
	return nil
}

// Contract is the wire form of a buy request.
type Contract struct {
	Symbol       string
	Stake        float64
	ContractType string
	Currency     string
	Duration     int
	DurationUnit string
}

// Receipt is a confirmed purchase.
type Receipt struct {
	ContractID    int64
	BuyPrice      float64
	TransactionID int64
	Longcode      string
}

// Buy purchases one contract. A session trades at most once; a rejection unwraps to ErrTrade.
func (c *Client) Buy(ctx context.Context, contract Contract) (Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.require(opBuy, Authenticated, Deciding); err != nil {
		return Receipt{}, err
	}
	if c.sub != nil {
		return Receipt{}, fmt.Errorf("%w: buy with an active tick subscription", ErrOutOfOrder)
	}
	c.advance(Trading)

	msg, err := c.roundTrip(ctx, opBuy, KindBuy, func(id int64) any {
		return buyRequest{
			Buy:   1,
			Price: contract.Stake,
			Parameters: buyParameters{
				Amount:       contract.Stake,
				Basis:        "stake",
				ContractType: contract.ContractType,
				Currency:     contract.Currency,
				Duration:     contract.Duration,
				DurationUnit: contract.DurationUnit,
				Symbol:       contract.Symbol,
			},
			ReqID: id,
		}
	})
	if err != nil {
		return Receipt{}, err
	}
	bm := msg.(*BuyMessage)
	return Receipt{
		ContractID:    bm.ContractID,
		BuyPrice:      bm.BuyPrice,
		TransactionID: bm.TransactionID,
		Longcode:      bm.Longcode,
	}, nil
}

// Close releases an unreleased subscription best-effort, then closes the connection.
// It is safe to call on every exit path and more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == Closed {
		return nil
	}

	if c.sub != nil && !c.sub.Released() && !c.isDone() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		if err := c.forget(ctx, c.sub); err != nil {
			c.log.Warn().Err(err).Msg("release subscription on close")
		}
		cancel()
	}

	c.state.Store(int32(Closed))
	c.closeOnce.Do(func() { close(c.closing) })
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	err := c.conn.Close()
	c.log.Debug().Msg("session closed")
	return err
}

func (c *Client) isDone() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
