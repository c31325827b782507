// Package ledger reconstructs historical inventory balances for a lot from
// its waste and transfer event stream.
package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// EventType enumerates the movements that appear in a lot history.
type EventType string

const (
	// EventWaste is an irreversible deduction from the lot.
	EventWaste EventType = "waste"
	// EventTransferOut debits the lot in favour of another lot.
	EventTransferOut EventType = "transfer_out"
	// EventTransferIn credits the lot from another lot.
	EventTransferIn EventType = "transfer_in"
	// EventBatchUsage is production consumption. Only replayed inline when
	// Options.MergeBatchUsage is set; otherwise usage is folded into the
	// baseline before the walk.
	EventBatchUsage EventType = "batch_usage"
)

// Event is a single dated movement against a lot.
type Event struct {
	ID               string
	Type             EventType
	Date             time.Time
	CreatedAt        time.Time
	Quantity         decimal.Decimal
	Unit             string
	Reason           string
	Notes            string
	CounterpartLotID string
}

// Annotated is an event decorated with the balance around it.
type Annotated struct {
	Event
	Before decimal.Decimal
	After  decimal.Decimal
	// Shortfall marks an event that drove the running balance negative.
	// The balance is reported as-is, never clamped.
	Shortfall bool
}

// Options tunes the reconstruction.
type Options struct {
	// MergeBatchUsage replays batch_usage events in the chronological
	// timeline instead of pre-subtracting total consumption as a baseline
	// offset. Requires usage events to carry real dates.
	MergeBatchUsage bool
}

// Reconstruct annotates each event with the lot quantity immediately before
// and after it, returning the list newest-first for display.
//
// The walk starts from received minus total batch consumption (the lump
// baseline), then replays waste and transfer events oldest-first. Events
// sort by business date, ties broken by creation time, so same-day entries
// replay in recording order. The input slice is never mutated.
func Reconstruct(received, batchConsumption decimal.Decimal, events []Event, opts Options) []Annotated {
	timeline := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.Type == EventBatchUsage && !opts.MergeBatchUsage {
			continue
		}
		timeline = append(timeline, ev)
	}

	sort.SliceStable(timeline, func(i, j int) bool {
		if !timeline[i].Date.Equal(timeline[j].Date) {
			return timeline[i].Date.Before(timeline[j].Date)
		}
		return timeline[i].CreatedAt.Before(timeline[j].CreatedAt)
	})

	running := received
	if !opts.MergeBatchUsage {
		running = received.Sub(batchConsumption)
	}

	annotated := make([]Annotated, 0, len(timeline))
	for _, ev := range timeline {
		entry := Annotated{Event: ev, Before: running}
		switch ev.Type {
		case EventTransferIn:
			entry.After = running.Add(ev.Quantity)
		default:
			entry.After = running.Sub(ev.Quantity)
		}
		entry.Shortfall = entry.After.IsNegative()
		running = entry.After
		annotated = append(annotated, entry)
	}

	// Newest first for display.
	for i, j := 0, len(annotated)-1; i < j; i, j = i+1, j-1 {
		annotated[i], annotated[j] = annotated[j], annotated[i]
	}
	return annotated
}

// FinalBalance returns the running quantity after replaying every event,
// i.e. the reconstructed present-moment availability.
func FinalBalance(received, batchConsumption decimal.Decimal, events []Event, opts Options) decimal.Decimal {
	annotated := Reconstruct(received, batchConsumption, events, opts)
	if len(annotated) == 0 {
		if opts.MergeBatchUsage {
			return received
		}
		return received.Sub(batchConsumption)
	}
	// Entry 0 is the newest event after reversal.
	return annotated[0].After
}

// Available evaluates the lot availability invariant at the present moment:
// received − consumed − wasted − transferred out + transferred in.
func Available(received, consumed, wasted, transferredOut, transferredIn decimal.Decimal) decimal.Decimal {
	return received.Sub(consumed).Sub(wasted).Sub(transferredOut).Add(transferredIn)
}
