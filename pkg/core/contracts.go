package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Blob describes where the input bytes of a file live.
type Blob struct {
	Location string `json:"location"`
}

// File references the input file of a job.
type File struct {
	ID   string `json:"id"`
	Blob Blob   `json:"blob"`
}

// Return tells the orchestrator how the result should be delivered.
type Return struct {
	Type string `json:"type,omitempty"`
}

// Job is the typed view of a JobRecord used on the orchestrator side.
type Job struct {
	JobID   string `json:"job_id"`
	UoW     string `json:"uow"`
	File    File   `json:"file"`
	Return  Return `json:"return,omitzero"`
	IdemKey string `json:"idem_key,omitempty"`
}

// Record converts the job to its open wire form.
func (j Job) Record() (JobRecord, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec JobRecord
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return rec, nil
}

// Artifact is a declared output of a unit of work. Location is informational;
// nothing in this module writes to it on the artifact's behalf.
type Artifact struct {
	Kind     string `json:"kind"`
	MIME     string `json:"mime"`
	Bytes    int64  `json:"bytes"`
	Location string `json:"location"`
}

// Result is the typed view of a ResultRecord.
type Result struct {
	JobID           string         `json:"job_id"`
	UoW             string         `json:"uow"`
	FileID          string         `json:"file_id"`
	AttributesPatch map[string]any `json:"attributes_patch"`
	Artifacts       []Artifact     `json:"artifacts"`
}

// Validate checks the fields the orchestrator relies on when applying a result.
func (r *Result) Validate() error {
	if r == nil {
		return ErrInvalidResult
	}
	if r.FileID == "" {
		return fmt.Errorf("%w: file_id", ErrResultShape)
	}
	if r.AttributesPatch == nil {
		return fmt.Errorf("%w: attributes_patch", ErrResultShape)
	}
	if r.Artifacts == nil {
		return fmt.Errorf("%w: artifacts", ErrResultShape)
	}
	for i, a := range r.Artifacts {
		if a.Kind == "" {
			return fmt.Errorf("%w: artifacts[%d].kind", ErrResultShape, i)
		}
		if a.Bytes < 0 {
			return fmt.Errorf("%w: artifacts[%d].bytes is negative", ErrResultShape, i)
		}
	}
	return nil
}
