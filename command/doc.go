/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package command provides remote commands: serializable units of work that are executed
// against a bucket state stored under a single key.
//
// A command never touches a store on its own. It receives a MutableEntry (the view of the
// fetched state) and the current time, mutates the entry if needed and returns a Result.
// Result.StateModified tells the executor whether the entry has to be written back.
//
// Every command has a stable TypeID, so it can be encoded with Encode, sent to another
// process and reconstructed there with Decode without any reflection.
package command
