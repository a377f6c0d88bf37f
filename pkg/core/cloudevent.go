package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// CloudEvent is a minimal CloudEvents v1.0 envelope carrying a job on a bus.
type CloudEvent struct {
	SpecVersion     string          `json:"specversion" msgpack:"specversion"`
	Type            string          `json:"type" msgpack:"type"`
	Source          string          `json:"source" msgpack:"source"`
	ID              string          `json:"id" msgpack:"id"`
	Time            time.Time       `json:"time" msgpack:"time"`
	DataContentType string          `json:"datacontenttype" msgpack:"datacontenttype"`
	Data            json.RawMessage `json:"data" msgpack:"data"`
}

const (
	CloudEventSpecVersion = "1.0"
	JobEventType          = "simpleprocess.job"
	JobDataContentType    = "application/json"
	DefaultEventSource    = "simple-uow"
)

// NewJobCloudEvent wraps a Job in a CloudEvent envelope. The event id is the job id.
func NewJobCloudEvent(source string, job Job) (CloudEvent, error) {
	if job.JobID == "" {
		return CloudEvent{}, ErrMissingJobID
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return CloudEvent{}, fmt.Errorf("marshal job: %w", err)
	}

	if source == "" {
		source = DefaultEventSource
	}

	return CloudEvent{
		SpecVersion:     CloudEventSpecVersion,
		Type:            JobEventType,
		Source:          source,
		ID:              job.JobID,
		Time:            time.Now().UTC(),
		DataContentType: JobDataContentType,
		Data:            payload,
	}, nil
}

// DecodeJob extracts the Job carried by the event.
func (e CloudEvent) DecodeJob() (Job, error) {
	if e.DataContentType != JobDataContentType {
		return Job{}, fmt.Errorf("unexpected data content type: %s", e.DataContentType)
	}

	var job Job
	if err := json.Unmarshal(e.Data, &job); err != nil {
		return Job{}, fmt.Errorf("decode job: %w", err)
	}
	return job, nil
}
