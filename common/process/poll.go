package process

import (
	"context"
	"fmt"
	"strings"

	"github.com/dramakit/drama/common/bus"
	"github.com/dramakit/drama/common/models"
	"github.com/dramakit/drama/common/servo"
)

// PollFromUpstream starts consuming the workflow topic and yields every BLOCK
// this task declared as input, in arrival order. The stream ends once every
// distinct upstream task has published its POISSON_PILL; declared inputs
// still unseen at that point surface as a MissingInputsError. An INTERRUPTION
// from an upstream task (or from the workflow topic itself, on a revoke)
// aborts the poll with ErrUpstreamInterrupted.
func (p *Process) PollFromUpstream(ctx context.Context) (*Poller, error) {
	return p.pollFromUpstream(ctx, true)
}

// PollFromUpstreamRaw is PollFromUpstream without payload decoding: each block
// yields its serialized bytes via Raw, for tasks that forward blocks verbatim.
func (p *Process) PollFromUpstreamRaw(ctx context.Context) (*Poller, error) {
	return p.pollFromUpstream(ctx, false)
}

func (p *Process) pollFromUpstream(ctx context.Context, decode bool) (*Poller, error) {
	if len(p.Inputs) == 0 {
		return nil, ErrNoInputs
	}

	expectedTasks := make(map[string]struct{})
	reversed := make(map[string]string, len(p.Inputs))
	var remaining []string
	for local, ref := range p.Inputs {
		task, _, _ := cutRef(ref)
		expectedTasks[task] = struct{}{}
		reversed[ref] = local
		remaining = append(remaining, ref)
	}

	consumer, err := p.bus.Consumer(p.Parent, p.Parent+"-"+p.Name)
	if err != nil {
		return nil, err
	}

	p.Debug(fmt.Sprintf("declared input tasks (%d), expected inputs: %v", len(expectedTasks), remaining))

	return &Poller{
		process:       p,
		consumer:      consumer,
		expectedTasks: expectedTasks,
		remaining:     remaining,
		reversed:      reversed,
		decode:        decode,
	}, nil
}

// Poller iterates upstream blocks. Usage mirrors bufio.Scanner: call Next
// until it returns false, then check Err.
type Poller struct {
	process       *Process
	consumer      bus.Consumer
	expectedTasks map[string]struct{}
	remaining     []string
	reversed      map[string]string
	decode        bool

	pills int
	done  bool
	err   error

	key   string
	value map[string]any
	raw   []byte
}

// Key returns the local input name of the current block.
func (it *Poller) Key() string { return it.key }

// Value returns the decoded payload of the current block. Nil in raw mode.
func (it *Poller) Value() map[string]any { return it.value }

// Raw returns the serialized payload of the current block in raw mode.
func (it *Poller) Raw() []byte { return it.raw }

// Err returns the terminal error, if any, once Next returned false.
func (it *Poller) Err() error { return it.err }

// Next advances to the next input block. It blocks until one arrives, the
// stream ends, or the context is cancelled.
func (it *Poller) Next(ctx context.Context) bool {
	if it.done {
		return false
	}
	for {
		if it.pills >= len(it.expectedTasks) {
			return it.finish()
		}

		record, err := it.consumer.Poll(ctx)
		if err != nil {
			return it.fail(err)
		}
		if record == nil {
			if ctx.Err() != nil {
				return it.fail(ctx.Err())
			}
			continue
		}

		yield, ok, err := it.handle(record)
		if err != nil {
			return it.fail(err)
		}
		if ok {
			it.key = yield.local
			it.value = yield.payload
			it.raw = yield.raw
			return true
		}
	}
}

type yielded struct {
	local   string
	payload map[string]any
	raw     []byte
}

func (it *Poller) handle(record *bus.Record) (yielded, bool, error) {
	p := it.process

	// Records from tasks this one does not consume are ignored, except for
	// signals keyed by the workflow id (a revoke broadcast).
	incoming := string(record.Key)
	if _, expected := it.expectedTasks[incoming]; !expected && incoming != p.Parent {
		return yielded{}, false, nil
	}

	dict, err := servo.Deserialize(record.Value, MessageSchema)
	if err != nil {
		return yielded{}, false, err
	}
	message := models.MessageFromDict(dict)

	switch message.Type {
	case models.MessageTypeSignal:
		switch string(message.Data) {
		case models.SignalInterruption:
			p.Warn("received interruption signal from task " + incoming)
			return yielded{}, false, fmt.Errorf("%w: signal from %s", ErrUpstreamInterrupted, incoming)
		case models.SignalPoissonPill:
			p.Debug("received end-of-stream signal from task " + incoming)
			it.pills++
			return yielded{}, false, nil
		default:
			return yielded{}, false, fmt.Errorf("process: unrecognized signal %q", message.Data)
		}

	case models.MessageTypeBlock:
		local, declared := it.reversed[message.Key]
		if !declared {
			p.Debug("discarding message " + message.Key)
			return yielded{}, false, nil
		}

		for i, ref := range it.remaining {
			if ref == message.Key {
				it.remaining = append(it.remaining[:i], it.remaining[i+1:]...)
				break
			}
		}

		if !it.decode {
			return yielded{local: local, raw: message.Data}, true, nil
		}
		payload, err := servo.DeserializeWithSchemaJSON(message.Data, message.Schem)
		if err != nil {
			return yielded{}, false, err
		}
		return yielded{local: local, payload: payload}, true, nil

	default:
		return yielded{}, false, fmt.Errorf("process: unrecognized message type %q", message.Type)
	}
}

func (it *Poller) finish() bool {
	it.done = true
	it.consumer.Close()
	if len(it.remaining) > 0 {
		it.err = &MissingInputsError{Missing: it.remaining}
	}
	return false
}

func (it *Poller) fail(err error) bool {
	it.done = true
	it.consumer.Close()
	it.err = err
	return false
}

// GetFromUpstream drains the whole upstream stream and groups payloads by
// local input name.
func (p *Process) GetFromUpstream(ctx context.Context) (map[string][]map[string]any, error) {
	poller, err := p.PollFromUpstream(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]map[string]any)
	for poller.Next(ctx) {
		out[poller.Key()] = append(out[poller.Key()], poller.Value())
	}
	if err := poller.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func cutRef(ref string) (task, output string, ok bool) {
	return strings.Cut(ref, ".")
}
