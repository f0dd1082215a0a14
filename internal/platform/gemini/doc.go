// Package gemini provides an implementation of the generation.Generator
// interface backed by Google's Gemini API.
//
// The generator renders a prompt from the task input, asks the model for a
// JSON array of name candidates, repairs and normalises the returned array and
// hands the first usable candidate back as the task result. Transport errors
// are retried with exponential backoff and jitter; blocked or malformed
// responses are permanent and returned immediately.
package gemini
