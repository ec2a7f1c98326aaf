// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import "time"

const (
	// Label of the reserved signal that carries annotations.
	annotationLabel = "EDF Annotations"

	// Default and minimum size of the annotation signal, in two-byte
	// samples per data record. The default matches edflib's 114 bytes.
	defaultAnnotationSamplesPerRecord = 57
	minAnnotationSamplesPerRecord     = 16

	// TAL delimiter bytes: 0x15 separates onset from duration, 0x14
	// delimits the description, and NUL terminates each list entry.
	talDurationSep = 0x15
	talTextSep     = 0x14

	// Bytes held back from each record's annotation capacity for the
	// record-start timestamp, so that a pending entry always fits an
	// otherwise empty record regardless of the record index. The 8-digit
	// record count field and the 60s duration cap bound record starts
	// below 6e9 seconds, so a timestamp TAL is at most 1+10+1+6 onset
	// bytes plus 3 delimiters.
	talTimestampReserve = 24
)

// annotationChannel returns the descriptor for the reserved annotations
// signal that is appended after the caller-supplied channels.
func annotationChannel(samplesPerRecord int) Channel {
	return Channel{
		Label:           annotationLabel,
		PhysicalMin:     -1,
		PhysicalMax:     1,
		DigitalMin:      -32768,
		DigitalMax:      32767,
		SampleFrequency: samplesPerRecord,
	}
}

// formatOnset renders a time offset as the signed decimal seconds string
// used by TAL onsets.
func formatOnset(d time.Duration) string {
	if d < 0 {
		return formatSeconds(d)
	}
	return "+" + formatSeconds(d)
}

// appendTimestampTAL appends the record-start timestamp that must open every
// record's annotation block.
func appendTimestampTAL(b []byte, recordStart time.Duration) []byte {
	b = append(b, formatOnset(recordStart)...)
	return append(b, talTextSep, talTextSep, 0x00)
}

// appendAnnotationTAL appends one annotation entry. The duration is omitted
// for instantaneous events.
func appendAnnotationTAL(b []byte, a Annotation) []byte {
	b = append(b, formatOnset(a.Onset)...)
	if a.Duration > 0 {
		b = append(b, talDurationSep)
		b = append(b, formatSeconds(a.Duration)...)
	}
	b = append(b, talTextSep)
	b = append(b, a.Description...)
	return append(b, talTextSep, 0x00)
}

// annotationQueue buffers annotations until the record covering their onset
// is framed. Entries that do not fit their record's remaining capacity spill
// forward into later records; TAL onsets are absolute, so the carrying
// record does not affect how readers interpret them.
type annotationQueue struct {
	pending []Annotation
}

func (q *annotationQueue) push(a Annotation) {
	q.pending = append(q.pending, a)
}

func (q *annotationQueue) len() int {
	return len(q.pending)
}

// fill builds the annotation block for the record spanning
// [recordStart, recordStart+recordDuration), consuming every pending entry
// that is due and fits. The block is NUL-padded to exactly capacity bytes.
func (q *annotationQueue) fill(recordStart, recordDuration time.Duration, capacity int) []byte {
	block := appendTimestampTAL(make([]byte, 0, capacity), recordStart)

	end := recordStart + recordDuration
	kept := q.pending[:0]
	for _, a := range q.pending {
		if a.Onset >= end {
			// Not due yet.
			kept = append(kept, a)
			continue
		}
		entry := appendAnnotationTAL(nil, a)
		if len(block)+len(entry) > capacity {
			// Spill into a later record.
			kept = append(kept, a)
			continue
		}
		block = append(block, entry...)
	}
	q.pending = kept

	for len(block) < capacity {
		block = append(block, 0x00)
	}
	return block
}
