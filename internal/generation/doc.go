// Package generation defines the boundary between the task pipeline and the
// name-generation engine. The engine is opaque to the rest of the
// application: it receives a task's input and returns a single NameResult or
// an error. Implementations live in internal/platform/gemini (Gemini LLM)
// and in this package (StaticGenerator, a fixed-result engine for local runs).
//
// The package also holds the provider-neutral handling of LLM output: JSON
// array extraction and repair, and candidate normalisation.
package generation
