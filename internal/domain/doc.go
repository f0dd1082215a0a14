// Package domain contains the core business entities of the name generation
// API: the slug-addressed Task, its immutable input, and the outcome a
// generation run records on it. It is independent of any storage or
// delivery mechanism.
package domain
