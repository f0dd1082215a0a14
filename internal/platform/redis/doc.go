// Package redis implements the task store on Redis.
//
// Layout, with every key under the configured prefix:
//
//	<prefix>:task:<slug>    JSON-encoded task
//	<prefix>:slug:<slug>    slug reservation, kept after delete
//	<prefix>:tasks:index    sorted set ordering tasks for listing
//	<prefix>:tasks:pending  sorted set of pending slugs scored by creation time
//
// Mutations run as WATCH/MULTI transactions and are retried when a watched
// key changes underneath them.
package redis
