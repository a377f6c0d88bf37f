// Package registry maps unit-of-work names to entrypoints.
//
// The registry belongs to the orchestrator. Entrypoints themselves never
// consult it; it exists so a worker or HTTP transport can route an incoming
// job payload to the entrypoint named by its "uow" field:
//
//	reg := registry.New()
//	reg.MustAdd(hash.Entrypoint())
//	out, err := reg.Dispatch(ctx, payload)
//
// Dispatch decodes the payload once to read the unit-of-work name and then
// hands the original payload to the entrypoint, so the entrypoint's own
// decode and encode steps stay authoritative.
package registry
