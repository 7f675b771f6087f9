package exchange

import (
	"errors"
	"testing"
)

func TestDecodeDiscriminatesMessages(t *testing.T) {
	cases := []struct {
		raw  string
		want Kind
	}{
		{`{"msg_type":"authorize","req_id":1,"authorize":{"loginid":"VRTC1","currency":"USD"}}`, KindAuthorize},
		{`{"msg_type":"history","req_id":2,"history":{"prices":[10,9.5,9],"times":[1,2,3]}}`, KindHistory},
		{`{"msg_type":"tick","req_id":3,"tick":{"symbol":"R_100","quote":1234.56,"epoch":1700000000},"subscription":{"id":"abc"}}`, KindTick},
		{`{"msg_type":"forget_all","req_id":4,"forget_all":["abc"]}`, KindForgetAll},
		{`{"msg_type":"buy","req_id":5,"buy":{"contract_id":42,"buy_price":0.35}}`, KindBuy},
		{`{"msg_type":"authorize","req_id":1,"error":{"code":"InvalidToken","message":"The token is invalid."}}`, KindError},
	}
	for _, tc := range cases {
		msg, err := Decode([]byte(tc.raw))
		if err != nil {
			t.Fatalf("Decode(%s) returned error: %v", tc.raw, err)
		}
		if msg.Kind() != tc.want {
			t.Fatalf("Decode(%s): expected %s got %s", tc.raw, tc.want, msg.Kind())
		}
	}
}

func TestDecodeTickFields(t *testing.T) {
	msg, err := Decode([]byte(`{"msg_type":"tick","req_id":7,"tick":{"symbol":"R_100","quote":101.25,"epoch":1700000001},"subscription":{"id":"sub-9"}}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	tick := msg.(*TickMessage)
	if tick.Quote != 101.25 || tick.Symbol != "R_100" || tick.SubscriptionID != "sub-9" || tick.RequestID() != 7 {
		t.Fatalf("unexpected tick %+v", tick)
	}
}

func TestDecodeMissingHistoryIsDataUnavailable(t *testing.T) {
	for _, raw := range []string{
		`{"msg_type":"history","req_id":2}`,
		`{"msg_type":"history","req_id":2,"history":{"prices":[],"times":[]}}`,
	} {
		msg, err := Decode([]byte(raw))
		if err != nil {
			t.Fatalf("Decode returned error: %v", err)
		}
		em, ok := msg.(*ErrorMessage)
		if !ok {
			t.Fatalf("expected error message for %s, got %T", raw, msg)
		}
		if !errors.Is(em.asError(opHistory), ErrDataUnavailable) {
			t.Fatalf("expected data unavailable kind")
		}
	}
}

func TestDecodeBuyWithoutContractIsError(t *testing.T) {
	msg, err := Decode([]byte(`{"msg_type":"buy","req_id":5}`))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if msg.Kind() != KindError {
		t.Fatalf("expected error kind, got %s", msg.Kind())
	}
}

func TestDecodeRejectsUnknownAndGarbage(t *testing.T) {
	if _, err := Decode([]byte(`{"msg_type":"website_status"}`)); !errors.Is(err, ErrUnknownMessage) {
		t.Fatalf("expected unknown message error, got %v", err)
	}
	if _, err := Decode([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := Decode([]byte(`{"msg_type":"tick"}`)); err == nil {
		t.Fatalf("expected error for tick without payload")
	}
}

func TestAPIErrorUnwrapsToOperationKind(t *testing.T) {
	cases := map[string]error{
		opAuthorize: ErrAuth,
		opHistory:   ErrDataUnavailable,
		opTicks:     ErrSubscribe,
		opForgetAll: ErrUnsubscribe,
		opBuy:       ErrTrade,
	}
	for op, kind := range cases {
		err := (&ErrorMessage{Code: "X", Message: "boom"}).asError(op)
		if !errors.Is(err, kind) {
			t.Fatalf("%s: expected %v", op, kind)
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.Message != "boom" {
			t.Fatalf("%s: expected APIError with message", op)
		}
	}
}
