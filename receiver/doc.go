// Package receiver turns an arbitrarily chunked byte stream into discrete
// replies.
//
// A transport goroutine pushes bytes through the Sink methods (Append,
// ResetBuffer, ReportError). An application goroutine calls Receive, which
// blocks until one of the request's terminators is seen, enough bytes are
// buffered, or the wait time runs out:
//
//	rx, _ := receiver.New()
//	req := &receiver.Request{
//		EOP:      [][]byte{{0x7E}},
//		WaitTime: time.Second,
//	}
//	ok, err := rx.Receive(ctx, req)
//	if err != nil {
//		// usage error, transport fault, decode error or cancellation
//	}
//	if ok {
//		frame := req.Reply.Bytes // includes the terminator
//	}
//
// A timeout is not an error: Receive returns false and the buffered bytes stay
// in place for the next call. Replies accumulate across calls of the same
// kind, so a caller may issue several Receive calls to build one logical
// reply.
//
// Only one goroutine should call Receive at a time.
package receiver
