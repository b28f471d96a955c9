// Package dynamo holds the types shared by every stage of a run: the phase
// state machine labels, the snapshot handed to observers, the run statistics,
// the error taxonomy and the data-parallel loop helper.
package dynamo
