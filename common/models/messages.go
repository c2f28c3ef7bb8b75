package models

// Message kinds on the streaming bus.
const (
	MessageTypeBlock  = "BLOCK"
	MessageTypeSignal = "SIGNAL"
)

// Signal payloads. POISSON_PILL marks end-of-stream for a producing task,
// INTERRUPTION cascade-fails every task polling the topic.
const (
	SignalPoissonPill  = "POISSON_PILL"
	SignalInterruption = "INTERRUPTION"
)

// ServoAvro tags BLOCK payloads encoded with the Avro schemaless codec.
const ServoAvro = "AVRO"

// Undefined fills envelope fields that do not apply to a message kind.
const Undefined = "undefined"

// Message is the envelope for every record on a workflow topic.
type Message struct {
	Type  string `json:"type"`
	Key   string `json:"key"`
	Data  []byte `json:"data"`
	Servo string `json:"servo"`
	Schem string `json:"schem"`
}

// NewBlockMessage wraps serialized record bytes and their inline schema.
func NewBlockMessage(key string, data []byte, schema string) Message {
	return Message{
		Type:  MessageTypeBlock,
		Key:   key,
		Data:  data,
		Servo: ServoAvro,
		Schem: schema,
	}
}

// NewSignalMessage wraps a SIGNAL payload (POISSON_PILL or INTERRUPTION).
func NewSignalMessage(signal string) Message {
	return Message{
		Type: MessageTypeSignal,
		Data: []byte(signal),
	}
}

// AsDict returns the envelope as a map matching the fixed envelope schema,
// with "undefined" defaults applied to unset string fields.
func (m Message) AsDict() map[string]any {
	dict := map[string]any{
		"type":  m.Type,
		"key":   Undefined,
		"data":  m.Data,
		"servo": Undefined,
		"schem": Undefined,
	}
	if m.Data == nil {
		dict["data"] = []byte{}
	}
	if m.Key != "" {
		dict["key"] = m.Key
	}
	if m.Servo != "" {
		dict["servo"] = m.Servo
	}
	if m.Schem != "" {
		dict["schem"] = m.Schem
	}
	return dict
}

// MessageFromDict rebuilds an envelope from a decoded map.
func MessageFromDict(dict map[string]any) Message {
	m := Message{}
	if v, ok := dict["type"].(string); ok {
		m.Type = v
	}
	if v, ok := dict["key"].(string); ok && v != Undefined {
		m.Key = v
	}
	if v, ok := dict["data"].([]byte); ok {
		m.Data = v
	}
	if v, ok := dict["servo"].(string); ok && v != Undefined {
		m.Servo = v
	}
	if v, ok := dict["schem"].(string); ok && v != Undefined {
		m.Schem = v
	}
	return m
}
