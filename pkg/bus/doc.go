// Package bus provides job transports for asynchronous execution.
//
// Every bus implements core.Bus for producers and core.Subscriber for
// workers:
//   - MemoryBus: buffered channel for examples and tests
//   - RedisBus: CloudEvent frames pushed onto a Redis list and consumed with BLPOP
//   - NATSBus: CloudEvent frames published to a subject and consumed through a queue group
//
// Remote buses wrap each job in a core.CloudEvent and serialize the envelope
// with a codec.FrameCodec (JSON by default, MessagePack via WithFrameCodec).
//
// Subscribe blocks. It returns ctx.Err() when ctx is cancelled and nil when
// the bus is closed. Errors returned by the job callback are logged and do
// not stop the subscription.
package bus
