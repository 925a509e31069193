// Package rules holds the eligibility predicates that decide which actions
// an actor may take against a derived view.
//
// Every Check function returns nil when the action is allowed and a *Denial
// naming the first rule that fails otherwise. The Can functions are boolean
// shorthands. None of them perform I/O.
package rules
