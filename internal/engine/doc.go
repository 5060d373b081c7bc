// Package engine drives archival jobs from manifest to commit.
//
// The engine owns the job state machine: one-time repository
// initialization, manifest-order dispatch of files to the fetch proxy,
// the alternate-URL retry ladder for ambiguous payloads, blob uploads,
// and final commit assembly. Every mutation is checkpointed to the job
// store before the next network call, so an uncontrolled restart
// resumes by demoting the single in-flight file back to pending and
// re-entering the same loop.
package engine
