// Package memory bounds the heap used while decoding RAW files.
//
// A 40 megapixel RAW decodes to well over 100 MB of pixels, so a scan with
// several workers can outgrow a container quickly. [ApplyLimit] sets
// GOMEMLIMIT to a share of the configured limit (memory.limit, or the
// MEMORY_LIMIT variable set through the Kubernetes Downward API):
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//
// A GOMEMLIMIT environment variable always wins.
//
// [Monitor] samples heap usage and, above the critical watermark, pauses
// decode workers in [Monitor.Wait] until usage falls below the high
// watermark again.
package memory
