// Package conversation drives the turn loop of one conversation: it feeds
// the model the merged tool catalog and the growing message history,
// publishes progress events in arrival order, dispatches requested tool
// calls, and persists every turn until the model ends its turn.
package conversation
