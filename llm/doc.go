// Package llm defines the minimal language-model provider contract consumed
// by the engine: a prompt goes in, either free text or a schema-constrained
// JSON object comes out. Provider implementations live under providers/.
package llm
