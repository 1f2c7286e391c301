// Package policy provides optional declarative rules applied on top of a
// running engine – for example to deny whole classes of actions outright or
// to require an interactive confirmation before every sensitive invocation.
package policy
