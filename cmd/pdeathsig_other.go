//go:build !linux

package main

// setParentDeathSignal is a no-op off Linux; stdin EOF still ends the child.
func setParentDeathSignal() error { return nil }
