// Package process is the execution context handed to a running component: its
// identity, params, unsealed secrets, artifact storage, the workflow topic it
// produces to and consumes from, and a task log that is uploaded on close.
package process

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dramakit/drama/common/bus"
	"github.com/dramakit/drama/common/logger"
	"github.com/dramakit/drama/common/models"
	"github.com/dramakit/drama/common/secrets"
	"github.com/dramakit/drama/common/servo"
	"github.com/dramakit/drama/common/storage"
)

// MessageSchema is the fixed Avro schema of every record on a workflow topic.
// It never changes: the payload schema travels inline in the schem field.
var MessageSchema = map[string]any{
	"type":      "record",
	"name":      "message",
	"namespace": "drama.process",
	"fields": []any{
		map[string]any{"name": "type", "type": "string"},
		map[string]any{"name": "key", "type": "string", "default": "undefined"},
		map[string]any{"name": "data", "type": "bytes"},
		map[string]any{"name": "servo", "type": "string", "default": "undefined"},
		map[string]any{"name": "schem", "type": "string", "default": "undefined"},
	},
}

// ErrUpstreamInterrupted reports an INTERRUPTION signal received while polling.
var ErrUpstreamInterrupted = fmt.Errorf("process: interrupted by upstream")

// ErrNoInputs reports a poll on a task that declares no inputs.
var ErrNoInputs = fmt.Errorf("process: tried to poll from upstream, but no input defined")

// MissingInputsError reports declared inputs that never arrived before every
// upstream task closed its stream.
type MissingInputsError struct {
	Missing []string
}

func (e *MissingInputsError) Error() string {
	return "process: some inputs were declared but are missing: " + strings.Join(e.Missing, ", ")
}

// Options configure a Process.
type Options struct {
	Name    string
	Module  string
	Parent  string
	Params  map[string]any
	Inputs  map[string]string
	Secrets []secrets.Unsealed
	Storage storage.Storage
	Bus     bus.Bus
	Log     *logger.Logger
}

// Process is the per-task execution context.
type Process struct {
	Name    string
	Module  string
	Parent  string
	Params  map[string]any
	Inputs  map[string]string
	Secrets []secrets.Unsealed
	Storage storage.Storage

	bus     bus.Bus
	log     *logger.Logger
	logFile *os.File
}

// New sets up storage and the task log file and returns a ready context.
func New(ctx context.Context, opts Options) (*Process, error) {
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	if opts.Inputs == nil {
		opts.Inputs = map[string]string{}
	}
	if opts.Params == nil {
		opts.Params = map[string]any{}
	}

	if _, err := opts.Storage.Setup(ctx); err != nil {
		return nil, fmt.Errorf("process: storage setup: %w", err)
	}

	logFile, err := os.CreateTemp(opts.Storage.LocalDir(), "tasklog-*")
	if err != nil {
		return nil, fmt.Errorf("process: create log file: %w", err)
	}

	return &Process{
		Name:    opts.Name,
		Module:  opts.Module,
		Parent:  opts.Parent,
		Params:  opts.Params,
		Inputs:  opts.Inputs,
		Secrets: opts.Secrets,
		Storage: opts.Storage,
		bus:     opts.Bus,
		log:     opts.Log.WithWorkflow(opts.Parent).WithTask(opts.Name),
		logFile: logFile,
	}, nil
}

// FindSecret returns the unsealed secret for a token.
func (p *Process) FindSecret(token string) (string, bool) {
	for _, s := range p.Secrets {
		if s.Token == token {
			return s.Value, true
		}
	}
	return "", false
}

// ToDownstream serializes the record with its self-describing schema and
// publishes it as a BLOCK keyed "<task>.<record>" on the workflow topic.
func (p *Process) ToDownstream(ctx context.Context, rec Publishable) (models.Message, error) {
	dict, err := rec.Dict()
	if err != nil {
		return models.Message{}, err
	}

	schemaJSON, err := json.Marshal(rec.Schema())
	if err != nil {
		return models.Message{}, fmt.Errorf("process: marshal schema: %w", err)
	}

	data, err := servo.SerializeWithSchemaJSON(dict, string(schemaJSON))
	if err != nil {
		return models.Message{}, err
	}

	messageKey := p.Name + "." + rec.Key()
	message := models.NewBlockMessage(messageKey, data, string(schemaJSON))

	p.Debug("sending " + messageKey + " to downstream")
	if err := p.send(ctx, p.Parent, p.Name, message); err != nil {
		return models.Message{}, err
	}
	return message, nil
}

// Publishable is anything that can ride a BLOCK: a canonical dict, a record
// type name, and a self-describing schema. datatype.Record satisfies it.
type Publishable interface {
	Dict() (map[string]any, error)
	Key() string
	Schema() map[string]any
}

// Broadcast publishes a SIGNAL to an arbitrary workflow topic, keyed by the
// topic itself so every task polling it accepts the record.
func (p *Process) Broadcast(ctx context.Context, topic, signal string) error {
	return p.send(ctx, topic, topic, models.NewSignalMessage(signal))
}

func (p *Process) send(ctx context.Context, topic, key string, message models.Message) error {
	value, err := servo.Serialize(message.AsDict(), MessageSchema)
	if err != nil {
		return err
	}
	producer, err := p.bus.Producer(topic)
	if err != nil {
		return err
	}
	defer producer.Close()
	return producer.Send(ctx, []byte(key), value)
}

// Close uploads the task log as log.txt, optionally removes the local scratch
// dir (keeping log.txt.old), and emits the end-of-stream signal: POISSON_PILL
// on a graceful close, INTERRUPTION when forceInterruption is set.
func (p *Process) Close(ctx context.Context, forceInterruption, removeLocalDir bool) (models.Resource, error) {
	if forceInterruption {
		p.Error("task brutally interrupted")
	} else {
		p.Debug("task gracefully closed")
	}

	const logName = "log.txt"

	logPath := p.logFile.Name()
	if err := p.logFile.Close(); err != nil {
		return models.Resource{}, fmt.Errorf("process: close log file: %w", err)
	}

	logRemote, err := p.Storage.PutFile(ctx, logPath, logName)
	if err != nil {
		return models.Resource{}, err
	}

	if removeLocalDir {
		// The log file is always kept, renamed .old, for debugging.
		if err := p.Storage.RemoveLocalDir([]string{logName}); err != nil {
			return models.Resource{}, err
		}
	}

	signal := models.SignalPoissonPill
	if forceInterruption {
		signal = models.SignalInterruption
	}
	if err := p.send(ctx, p.Parent, p.Name, models.NewSignalMessage(signal)); err != nil {
		return models.Resource{}, err
	}

	return logRemote, nil
}

// Info writes an INFO line to the task log and the process logger.
func (p *Process) Info(msg string) { p.log.Info(msg); p.writeLog("INFO", msg) }

// Debug writes a DEBUG line to the task log and the process logger.
func (p *Process) Debug(msg string) { p.log.Debug(msg); p.writeLog("DEBUG", msg) }

// Warn writes a WARNING line to the task log and the process logger.
func (p *Process) Warn(msg string) { p.log.Warn(msg); p.writeLog("WARNING", msg) }

// Error writes an ERROR line to the task log and the process logger.
func (p *Process) Error(msg string) { p.log.Error(msg); p.writeLog("ERROR", msg) }

func (p *Process) writeLog(level, msg string) {
	fmt.Fprintf(p.logFile, "[%s] [%s] %s\n", level, time.Now().Format(time.RFC3339), msg)
}

// PollTopic consumes the first raw record value published on an arbitrary
// topic, waiting up to timeout. Used by components that receive out-of-band
// values, e.g. dynamic parameters pushed through the API.
func (p *Process) PollTopic(ctx context.Context, topic string, timeout time.Duration) ([]byte, error) {
	consumer, err := p.bus.Consumer(topic, topic+"-"+p.Name)
	if err != nil {
		return nil, err
	}
	defer consumer.Close()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		record, err := consumer.Poll(ctx)
		if err != nil {
			return nil, err
		}
		if record != nil {
			return record.Value, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, nil
}
