package model

// Package model defines the data structures shared by the mashup pipeline:
// search candidates, fetch jobs and results, MashupSpec, run states
// and the error taxonomy. Values are transient and scoped to a single run.
