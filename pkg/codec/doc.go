// Package codec converts between wire payloads and in-memory records.
//
// The job and result codecs are free functions so transports, tests and the
// adapter share one serialization:
//   - DecodeJob / DecodeJobBytes: wire job payload -> core.JobRecord
//   - EncodeResult: core.ResultRecord -> wire result payload
//   - EncodeJob / DecodeResult: typed helpers for the orchestrator side
//   - Equal: the codec's notion of record equality
//
// Bus frames (CloudEvent envelopes) use a FrameCodec, JSON by default or
// MessagePack.
package codec
