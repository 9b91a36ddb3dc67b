package receiver

import (
	"context"
	"time"

	"github.com/c360/syncmedia/errors"
	"github.com/c360/syncmedia/pkg/eop"
)

// outcome is the detector result. end is exclusive and -1 when not found.
type outcome struct {
	found bool
	end   int
}

var notFound = outcome{end: eop.NotFound}

// detect waits until req is satisfied, the deadline passes or a fault is
// reported. deadline is zero unless req.WaitTime is positive.
func (r *Receiver) detect(ctx context.Context, req *Request, deadline time.Time) (outcome, error) {
	patterns := make([]eop.Pattern, len(req.EOP))
	for i, c := range req.EOP {
		patterns[i] = eop.Compile(c)
	}

	minRequired := req.Count
	if n := req.shortest(); n > minRequired {
		minRequired = n
	}
	poll := req.WaitTime == 0

	// scanned is the buffer size at the last evaluation.
	scanned := -1
	for {
		if err := r.coord.Err(); err != nil {
			return notFound, err
		}

		size := r.Buffered()
		timedOut := false
		if size < minRequired || size == scanned {
			if poll {
				timedOut = true
			} else {
				remaining := time.Duration(-1)
				if !deadline.IsZero() {
					remaining = time.Until(deadline)
				}
				switch {
				case !deadline.IsZero() && remaining <= 0:
					timedOut = true
				case !r.coord.Wait(ctx, remaining):
					if err := ctx.Err(); err != nil {
						return notFound, errors.WrapTransient(err, "Receiver", "Receive", "wait")
					}
					if r.coord.Closed() {
						return notFound, closedError("Receive")
					}
					timedOut = true
				}
				if err := r.coord.Err(); err != nil {
					return notFound, err
				}
				if !timedOut {
					continue
				}
			}
		}

		r.mu.Lock()
		out, size := r.scan(req, patterns, minRequired), r.acc.Size()
		r.mu.Unlock()
		scanned = size

		if out.found {
			return out, nil
		}
		if timedOut || poll {
			if req.AllData {
				return outcome{found: true, end: size}, nil
			}
			return notFound, nil
		}
	}
}

// scan evaluates the buffer once. Callers hold r.mu.
func (r *Receiver) scan(req *Request, patterns []eop.Pattern, minRequired int) outcome {
	size := r.acc.Size()
	if size < minRequired {
		return notFound
	}
	if len(patterns) == 0 {
		return outcome{found: true, end: req.Count}
	}

	window := r.acc.Window()
	last := r.acc.LastScan()
	defer r.acc.SetLastScan(size)

	for _, p := range patterns {
		from := req.Count
		if last > 0 {
			// A terminator may straddle the previous scan end.
			if rewound := last - (p.Len() - 1); rewound > from {
				from = rewound
			}
		}
		if idx := p.Index(window, from, size); idx != eop.NotFound {
			return outcome{found: true, end: idx + p.Len()}
		}
	}
	return notFound
}
