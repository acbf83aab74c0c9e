// Package envelope decodes CDC wire records into domain events.
package envelope

import "encoding/json"

// Op is the Debezium-style operation code carried by every envelope.
type Op string

const (
	OpCreate   Op = "c"
	OpUpdate   Op = "u"
	OpDelete   Op = "d"
	OpSnapshot Op = "r"
)

// Envelope is the raw wire record delivered by the log for one row change.
type Envelope struct {
	Op     Op                     `json:"op"`
	TsMs   int64                  `json:"ts_ms"`
	Before map[string]interface{} `json:"before,omitempty"`
	After  map[string]interface{} `json:"after"`
	Source map[string]interface{} `json:"source,omitempty"`
}

// Decode parses raw bytes into an Envelope, rejecting malformed records.
//
// A well-formed envelope is valid JSON carrying the required op, ts_ms and
// after keys; before and source are optional and retained only for
// logging.
func Decode(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &DecodeError{Reason: err.Error()}
	}

	if env.Op == "" {
		return nil, &DecodeError{Reason: "missing required field: op"}
	}
	if env.TsMs == 0 {
		return nil, &DecodeError{Reason: "missing required field: ts_ms"}
	}
	if env.After == nil {
		return nil, &DecodeError{Reason: "missing required field: after"}
	}

	return &env, nil
}

// ShouldSkip reports whether the envelope is a delete or snapshot record,
// which are dropped before decode: neither a domain event nor an error.
func ShouldSkip(env *Envelope) bool {
	return env.Op == OpDelete || env.Op == OpSnapshot
}

// SourceTable returns the upstream table name carried in the envelope's
// source block, or "" if the block is absent or lacks the key.
func (e *Envelope) SourceTable() string {
	table, _ := e.Source["table"].(string)
	return table
}

// SourceDB returns the upstream database name carried in the envelope's
// source block, or "" if the block is absent or lacks the key.
func (e *Envelope) SourceDB() string {
	db, _ := e.Source["db"].(string)
	return db
}
