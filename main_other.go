//go:build !linux

package main

func osHooks() {}
