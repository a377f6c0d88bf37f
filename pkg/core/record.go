package core

// Wire field names shared by job and result payloads.
const (
	FieldJobID           = "job_id"
	FieldUoW             = "uow"
	FieldFile            = "file"
	FieldFileID          = "file_id"
	FieldAttributesPatch = "attributes_patch"
	FieldArtifacts       = "artifacts"
)

// JobRecord is the decoded form of a wire job payload.
// It is an open mapping: fields other than job_id, uow and file are carried
// through untouched.
type JobRecord map[string]any

// JobID returns the job identifier, or "" when absent or not a string.
func (j JobRecord) JobID() string {
	return stringField(j, FieldJobID)
}

// UoW returns the name of the requested unit of work.
func (j JobRecord) UoW() string {
	return stringField(j, FieldUoW)
}

// File returns the nested file descriptor, or nil.
func (j JobRecord) File() map[string]any {
	f, _ := j[FieldFile].(map[string]any)
	return f
}

// FileID returns file.id.
func (j JobRecord) FileID() string {
	return stringField(j.File(), "id")
}

// BlobLocation returns file.blob.location.
func (j JobRecord) BlobLocation() string {
	blob, _ := j.File()["blob"].(map[string]any)
	return stringField(blob, "location")
}

// Clone returns a shallow copy so a handler can add fields without touching
// the caller's record.
func (j JobRecord) Clone() JobRecord {
	if j == nil {
		return nil
	}
	out := make(JobRecord, len(j))
	for k, v := range j {
		out[k] = v
	}
	return out
}

// ResultRecord is the open mapping a handler returns. A nil ResultRecord is
// the absent result and is rejected by the codec.
type ResultRecord map[string]any

// NewResult starts a result for job, echoing job_id, uow and file_id with an
// empty attributes patch and no artifacts.
func NewResult(job JobRecord) ResultRecord {
	return ResultRecord{
		FieldJobID:           job.JobID(),
		FieldUoW:             job.UoW(),
		FieldFileID:          job.FileID(),
		FieldAttributesPatch: map[string]any{},
		FieldArtifacts:       []Artifact{},
	}
}

// SetAttribute records a file attribute change in attributes_patch.
func (r ResultRecord) SetAttribute(key string, value any) ResultRecord {
	patch, ok := r[FieldAttributesPatch].(map[string]any)
	if !ok {
		patch = map[string]any{}
		r[FieldAttributesPatch] = patch
	}
	patch[key] = value
	return r
}

// AddArtifact appends a declared artifact, keeping the existing order.
func (r ResultRecord) AddArtifact(a Artifact) ResultRecord {
	switch existing := r[FieldArtifacts].(type) {
	case []Artifact:
		r[FieldArtifacts] = append(existing, a)
	case []any:
		r[FieldArtifacts] = append(existing, a)
	default:
		r[FieldArtifacts] = []Artifact{a}
	}
	return r
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
