// Package events decouples the task service from the generation dispatcher.
//
// The service emits a TaskRequestEvent of type name_generation after a task is
// persisted; a handler registered at startup turns it into a dispatch. Neither
// side imports the other.
package events
