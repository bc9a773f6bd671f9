// Package task provides ready-made core.Task implementations: a function
// adapter and a single-turn text generation task over any model.Chat.
package task
