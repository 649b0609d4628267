package main

import "strconv"

// funcVar adapts a plain function into a flag.Value; the CLI uses it to
// store the --config/-c path. The path is not checked while parsing flags;
// a bad path fails later, when the config file is read.
type funcVar func(s string) error

func (f funcVar) Set(s string) error { return f(s) }
func (f funcVar) String() string     { return "" }
func (f funcVar) IsBoolFlag() bool   { return false }

// countVar implements flag.Value for a repeatable, argument-less flag
// (--debug/-d): each occurrence increments the counter regardless of any
// value text the flag package might hand it.
type countVar int

func (c *countVar) Set(string) error {
	*c++
	return nil
}
func (c *countVar) String() string   { return strconv.Itoa(int(*c)) }
func (c *countVar) IsBoolFlag() bool { return true }
