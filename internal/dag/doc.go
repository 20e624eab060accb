// Package dag orders named nodes by their dependencies.
//
// Nodes keep their insertion order, and Sort breaks ties by it, so the same
// graph always yields the same order.
package dag
