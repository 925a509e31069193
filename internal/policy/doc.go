// Package policy compiles a group's CUE policy document.
//
// A policy names the group's admins (who may schedule, continue, retract,
// restore and purge), the categories proposals may use, and the default
// time of day for scheduled meetings:
//
//	group: {
//		name:       "Thursday Readers"
//		admins:     ["alice"]
//		categories: ["fiction", "essay"]
//		schedule: default_time: "19:00"
//	}
//
// The document is unified with an embedded schema before decoding, so type
// and format errors carry CUE source positions.
package policy
