package iso7816

// A Transaction is one C-APDU and the R-APDU it produced. A Trace is every
// transaction the Client needed for one logical command: the command itself,
// re-sends after 6CXX and GET RESPONSE rounds after 61XX.

// Transaction is a completed command-response pair.
type Transaction struct {
	Command  *CommandAPDU
	Response *ResponseAPDU
}

// IsSuccess reports whether the response status is a success. A missing
// response is not.
func (t *Transaction) IsSuccess() bool {
	return t.Response != nil && t.Response.Status.IsSuccess()
}

// Trace is the ordered list of transactions of one logical exchange.
type Trace []Transaction

// Last returns the final transaction, or nil for an empty trace.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// IsSuccess reports whether the final transaction succeeded and did not leave
// data behind (61XX).
func (t Trace) IsSuccess() bool {
	last := t.Last()
	return last != nil && last.Response != nil && last.Response.Status == SW_NO_ERROR
}

// Status returns the status word of the final transaction, or 0.
func (t Trace) Status() StatusWord {
	if last := t.Last(); last != nil && last.Response != nil {
		return last.Response.Status
	}
	return 0
}

// Data returns the response data of the logical exchange: the data of the
// answered command followed by every GET RESPONSE part. Responses discarded
// by a 6CXX re-send are left out.
func (t Trace) Data() []byte {
	var out []byte
	for _, tx := range t {
		if tx.Response == nil {
			continue
		}
		if tx.Response.Status.SW1() == 0x6C {
			out = out[:0]
			continue
		}
		out = append(out, tx.Response.Data...)
	}
	return out
}
