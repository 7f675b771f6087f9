package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	opAuthorize = "authorize"
	opHistory   = "ticks_history"
	opTicks     = "ticks"
	opForgetAll = "forget_all"
	opBuy       = "buy"
)

// Kind discriminates decoded inbound messages.
type Kind string

const (
	KindAuthorize Kind = "authorize"
	KindHistory   Kind = "history"
	KindTick      Kind = "tick"
	KindForgetAll Kind = "forget_all"
	KindBuy       Kind = "buy"
	KindError     Kind = "error"
)

// ErrUnknownMessage is returned by Decode for msg_type values the session never requests.
var ErrUnknownMessage = errors.New("unknown message type")

// Message is one decoded inbound frame.
type Message interface {
	Kind() Kind
	RequestID() int64
}

type header struct {
	reqID int64
}

func (h header) RequestID() int64 { return h.reqID }

// AuthorizeMessage confirms the token.
type AuthorizeMessage struct {
	header
	LoginID  string
	Currency string
	Balance  float64
}

// HistoryMessage carries a non-empty price history.
type HistoryMessage struct {
	header
	Prices []float64
	Times  []int64
}

// TickMessage is one push of a tick subscription.
type TickMessage struct {
	header
	Symbol         string
	Quote          float64
	Epoch          int64
	SubscriptionID string
}

// ForgetAllMessage confirms released subscriptions.
type ForgetAllMessage struct {
	header
	Released int
}

// BuyMessage confirms a purchased contract.
type BuyMessage struct {
	header
	ContractID    int64
	BuyPrice      float64
	TransactionID int64
	Longcode      string
}

// ErrorMessage is any response carrying an error object, or a response missing the fields its type requires.
type ErrorMessage struct {
	header
	Op      string
	Code    string
	Message string
}

func (*AuthorizeMessage) Kind() Kind { return KindAuthorize }
func (*HistoryMessage) Kind() Kind   { return KindHistory }
func (*TickMessage) Kind() Kind      { return KindTick }
func (*ForgetAllMessage) Kind() Kind { return KindForgetAll }
func (*BuyMessage) Kind() Kind       { return KindBuy }
func (*ErrorMessage) Kind() Kind     { return KindError }

func (m *ErrorMessage) asError(op string) *APIError {
	return NewAPIError(op, m.Code, m.Message)
}

type envelope struct {
	MsgType string `json:"msg_type"`
	ReqID   int64  `json:"req_id"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Authorize *struct {
		LoginID  string  `json:"loginid"`
		Currency string  `json:"currency"`
		Balance  float64 `json:"balance"`
	} `json:"authorize"`
	History *struct {
		Prices []float64 `json:"prices"`
		Times  []int64   `json:"times"`
	} `json:"history"`
	Tick *struct {
		Symbol string  `json:"symbol"`
		Quote  float64 `json:"quote"`
		Epoch  int64   `json:"epoch"`
	} `json:"tick"`
	Subscription *struct {
		ID string `json:"id"`
	} `json:"subscription"`
	ForgetAll []string `json:"forget_all"`
	Buy       *struct {
		ContractID    int64   `json:"contract_id"`
		BuyPrice      float64 `json:"buy_price"`
		TransactionID int64   `json:"transaction_id"`
		Longcode      string  `json:"longcode"`
	} `json:"buy"`
}

// opFor maps a msg_type onto the request that produces it.
func opFor(msgType string) string {
	switch msgType {
	case "authorize":
		return opAuthorize
	case "history", "candles", "ticks_history":
		return opHistory
	case "tick", "ticks":
		return opTicks
	case "forget_all":
		return opForgetAll
	case "buy":
		return opBuy
	default:
		return ""
	}
}

// Decode validates a raw frame once and returns its typed form.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	h := header{reqID: env.ReqID}
	op := opFor(env.MsgType)

	if env.Error != nil {
		return &ErrorMessage{header: h, Op: op, Code: env.Error.Code, Message: env.Error.Message}, nil
	}

	switch op {
	case opAuthorize:
		msg := &AuthorizeMessage{header: h}
		if env.Authorize != nil {
			msg.LoginID = env.Authorize.LoginID
			msg.Currency = env.Authorize.Currency
			msg.Balance = env.Authorize.Balance
		}
		return msg, nil
	case opHistory:
		if env.History == nil || len(env.History.Prices) == 0 {
			return &ErrorMessage{header: h, Op: opHistory, Code: "DataUnavailable", Message: "response carries no history prices"}, nil
		}
		return &HistoryMessage{header: h, Prices: env.History.Prices, Times: env.History.Times}, nil
	case opTicks:
		if env.Tick == nil {
			return nil, fmt.Errorf("decode message: tick push without tick")
		}
		msg := &TickMessage{header: h, Symbol: env.Tick.Symbol, Quote: env.Tick.Quote, Epoch: env.Tick.Epoch}
		if env.Subscription != nil {
			msg.SubscriptionID = env.Subscription.ID
		}
		return msg, nil
	case opForgetAll:
		return &ForgetAllMessage{header: h, Released: len(env.ForgetAll)}, nil
	case opBuy:
		if env.Buy == nil {
			return &ErrorMessage{header: h, Op: opBuy, Code: "InvalidResponse", Message: "response carries no contract"}, nil
		}
		return &BuyMessage{
			header:        h,
			ContractID:    env.Buy.ContractID,
			BuyPrice:      env.Buy.BuyPrice,
			TransactionID: env.Buy.TransactionID,
			Longcode:      env.Buy.Longcode,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, env.MsgType)
	}
}

type authorizeRequest struct {
	Authorize string `json:"authorize"`
	ReqID     int64  `json:"req_id,omitempty"`
}

type historyRequest struct {
	TicksHistory    string `json:"ticks_history"`
	AdjustStartTime int    `json:"adjust_start_time"`
	Count           int    `json:"count"`
	End             string `json:"end"`
	Granularity     int    `json:"granularity"`
	ReqID           int64  `json:"req_id,omitempty"`
}

type ticksRequest struct {
	Ticks     string `json:"ticks"`
	Subscribe int    `json:"subscribe"`
	ReqID     int64  `json:"req_id,omitempty"`
}

type forgetAllRequest struct {
	ForgetAll string `json:"forget_all"`
	ReqID     int64  `json:"req_id,omitempty"`
}

type buyParameters struct {
	Amount       float64 `json:"amount"`
	Basis        string  `json:"basis"`
	ContractType string  `json:"contract_type"`
	Currency     string  `json:"currency"`
	Duration     int     `json:"duration"`
	DurationUnit string  `json:"duration_unit"`
	Symbol       string  `json:"symbol"`
}

type buyRequest struct {
	Buy        int           `json:"buy"`
	Price      float64       `json:"price"`
	Parameters buyParameters `json:"parameters"`
	ReqID      int64         `json:"req_id,omitempty"`
}
