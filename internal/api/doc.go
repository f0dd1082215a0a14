// Package api handles incoming HTTP requests, request validation and response
// formatting. It adapts HTTP to the task service and the generation engine;
// it holds no state of its own.
package api
