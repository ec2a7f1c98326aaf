// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"fmt"
	"time"
)

// ValidationError reports a malformed header, channel, or annotation
// descriptor. It is detected before any bytes are written for the offending
// call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ShapeError reports frame data that does not match the declared channel
// layout. Channel is -1 when the frame itself has the wrong number of
// channels.
type ShapeError struct {
	Channel int
	Label   string
	Want    int
	Got     int
}

func (e *ShapeError) Error() string {
	if e.Channel < 0 {
		return fmt.Sprintf("expected %d channels, got %d", e.Want, e.Got)
	}
	return fmt.Sprintf("channel %d (%q): expected %d samples per record, got %d", e.Channel, e.Label, e.Want, e.Got)
}

// AnnotationRangeError reports an annotation that cannot be placed into any
// data record, either because its onset lies outside the recorded span or
// because its encoding exceeds the annotation signal's capacity.
type AnnotationRangeError struct {
	Onset  time.Duration
	Reason string
}

func (e *AnnotationRangeError) Error() string {
	return fmt.Sprintf("annotation at %s: %s", e.Onset, e.Reason)
}

// StateError reports an operation invoked in the wrong writer lifecycle
// state, e.g. writing frames before Open or after Finish.
type StateError struct {
	Op    string
	State WriterState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s called on %s writer", e.Op, e.State)
}

// WriterState identifies a stage in the writer lifecycle.
type WriterState int

const (
	StateUnopened WriterState = iota
	StateOpen
	StateFinished
)

func (s WriterState) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpen:
		return "open"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("WriterState(%d)", int(s))
	}
}
