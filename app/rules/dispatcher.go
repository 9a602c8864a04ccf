package rules

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"golang.org/x/sync/errgroup"
)

// ItemError is a failure of one rule, or of item validation, for one item.
type ItemError struct {
	ItemID string
	Rule   string
	Err    error
}

func (e *ItemError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("item %s: %v", e.ItemID, e.Err)
	}
	return fmt.Sprintf("item %s, rule %s: %v", e.ItemID, e.Rule, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// ItemErrors flattens err, as returned by Dispatch, into its item errors.
func ItemErrors(err error) []*ItemError {
	var out []*ItemError
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if ie, ok := e.(*ItemError); ok {
			out = append(out, ie)
			return
		}
		if joined, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range joined.Unwrap() {
				walk(inner)
			}
		}
	}
	walk(err)
	return out
}

// Dispatcher runs the applicable rules over a batch of items.
type Dispatcher struct {
	rules       []Rule
	parallelism int
}

func NewDispatcher(parallelism int, rules ...Rule) *Dispatcher {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &Dispatcher{rules: rules, parallelism: parallelism}
}

func (d *Dispatcher) Rules() []Rule {
	return d.rules
}

type outcome struct {
	alert *Alert
	err   error
}

// Dispatch evaluates items concurrently, at most parallelism at a time, and
// yields alerts in completion order. Rules of one item run sequentially.
// Failures do not stop the batch: they are yielded once, joined, after the
// last alert. Breaking out of the loop cancels the remaining evaluations.
func (d *Dispatcher) Dispatch(ctx context.Context, run *Run, items []Item) iter.Seq2[Alert, error] {
	return func(yield func(Alert, error) bool) {
		evalCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		outcomes := make(chan outcome)
		go func() {
			var g errgroup.Group
			g.SetLimit(d.parallelism)
			for _, item := range items {
				if evalCtx.Err() != nil {
					break
				}
				g.Go(func() error {
					d.evaluate(evalCtx, run, item, outcomes)
					return nil
				})
			}
			g.Wait()
			close(outcomes)
		}()

		var errs []error
		stopped := false
		for o := range outcomes {
			if stopped {
				continue
			}
			if o.err != nil {
				errs = append(errs, o.err)
				continue
			}
			if !yield(*o.alert, nil) {
				stopped = true
				cancel()
			}
		}
		if stopped {
			return
		}

		if len(errs) == 0 && ctx.Err() != nil {
			errs = append(errs, ctx.Err())
		}
		if err := errors.Join(errs...); err != nil {
			yield(Alert{}, err)
		}
	}
}

func (d *Dispatcher) evaluate(ctx context.Context, run *Run, item Item, outcomes chan<- outcome) {
	if err := item.Validate(); err != nil {
		outcomes <- outcome{err: &ItemError{ItemID: item.ID, Err: err}}
		return
	}

	for _, rule := range d.rules {
		if !rule.Matches(item) {
			continue
		}
		if err := ctx.Err(); err != nil {
			outcomes <- outcome{err: &ItemError{ItemID: item.ID, Rule: rule.Name(), Err: err}}
			return
		}

		alert, err := rule.Evaluate(ctx, run, item)
		if err != nil {
			outcomes <- outcome{err: &ItemError{ItemID: item.ID, Rule: rule.Name(), Err: err}}
			continue
		}
		if alert != nil {
			outcomes <- outcome{alert: alert}
		}
	}
}

// Collect drains a Dispatch sequence.
func Collect(seq iter.Seq2[Alert, error]) ([]Alert, error) {
	var alerts []Alert
	var err error
	for alert, e := range seq {
		if e != nil {
			err = e
			continue
		}
		alerts = append(alerts, alert)
	}
	return alerts, err
}
