// Package snapshot records the pipeline state after each step of a run.
//
// Snapshots are for inspection and debugging: they show what each step saw
// and produced. Runs are never resumed from them.
package snapshot

import (
	"encoding/json"
	"fmt"
	"time"
)

// Version is the snapshot format version.
const Version = 1

// Snapshot is the encoded pipeline state after one step.
type Snapshot struct {
	Version   int             `json:"version"`
	TaskID    string          `json:"task_id"`
	Pipeline  string          `json:"pipeline"`
	Step      string          `json:"step"`
	Index     int             `json:"index"`
	Timestamp time.Time       `json:"timestamp"`
	State     json.RawMessage `json:"state"`
}

// New encodes state into a snapshot taken after step number index of a
// pipeline serving taskID. It returns an error wrapping ErrEncode when state
// holds values JSON cannot represent.
func New(taskID, pipeline, step string, index int, state map[string]any) (*Snapshot, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return &Snapshot{
		Version:   Version,
		TaskID:    taskID,
		Pipeline:  pipeline,
		Step:      step,
		Index:     index,
		Timestamp: time.Now().UTC(),
		State:     data,
	}, nil
}

// Decode unmarshals the state into a map.
func (s *Snapshot) Decode() (map[string]any, error) {
	var out map[string]any
	if err := json.Unmarshal(s.State, &out); err != nil {
		return nil, fmt.Errorf("decode snapshot state: %w", err)
	}
	return out, nil
}

// Size returns the encoded state size in bytes.
func (s *Snapshot) Size() int64 {
	return int64(len(s.State))
}

// Info returns the snapshot's metadata.
func (s *Snapshot) Info() Info {
	return Info{
		TaskID:    s.TaskID,
		Pipeline:  s.Pipeline,
		Step:      s.Step,
		Index:     s.Index,
		Timestamp: s.Timestamp,
		Size:      s.Size(),
	}
}

func (s *Snapshot) clone() *Snapshot {
	c := *s
	c.State = append(json.RawMessage(nil), s.State...)
	return &c
}
