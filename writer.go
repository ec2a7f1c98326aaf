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
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
	"time"
	"unicode"
)

// Writer writes EDF+ files.
//
// A Writer moves through three states: unopened, open and finished. Open
// validates the header and writes it with a placeholder record count,
// WriteFrame appends one data record per call, and Finish patches the header
// with the final record count and releases the sink. Calls outside this
// order fail with a StateError. A Writer is not safe for concurrent use.
type Writer struct {
	w           io.WriteSeeker
	hdr         *Header
	state       WriterState
	dataRecords int // Number of data records written so far.
	annotations annotationQueue
}

// NewWriter returns a writer that renders the recording described by hdr to
// w. The header is copied and defaults are applied; nothing is written until
// Open. If w also implements io.Closer it is closed exactly once, by Finish
// or by the first unrecoverable I/O error.
func NewWriter(w io.WriteSeeker, hdr Header) *Writer {
	if hdr.Version == "" {
		hdr.Version = Version0
	}
	if hdr.StartTime.IsZero() {
		hdr.StartTime = time.Now()
	}
	if hdr.DataRecordDuration == 0 {
		hdr.DataRecordDuration = time.Second
	}
	if hdr.AnnotationSamplesPerRecord == 0 {
		hdr.AnnotationSamplesPerRecord = defaultAnnotationSamplesPerRecord
	}
	hdr.Channels = append([]Channel(nil), hdr.Channels...)

	return &Writer{w: w, hdr: &hdr}
}

// Open validates the header and writes it with a placeholder record count.
// On a ValidationError nothing is written and the writer stays unopened; on
// an I/O error the sink is released and the writer is finished.
func (ew *Writer) Open() error {
	if ew.state != StateUnopened {
		return &StateError{Op: "Open", State: ew.state}
	}

	if err := ew.hdr.validate(); err != nil {
		return err
	}

	if err := ew.writeHeader(-1); err != nil {
		ew.fail()
		return fmt.Errorf("error writing header: %w", err)
	}

	ew.state = StateOpen
	return nil
}

// WriteFrame writes a single data record. The frame must hold one slice of
// physical values per channel, each exactly SampleFrequency long; a
// mismatch fails with a ShapeError before any bytes are written. Samples
// are scaled to digital codes, and the record's share of buffered
// annotations is packed into the reserved annotation signal.
func (ew *Writer) WriteFrame(frame [][]float64) error {
	if ew.state != StateOpen {
		return &StateError{Op: "WriteFrame", State: ew.state}
	}

	if len(frame) != len(ew.hdr.Channels) {
		return &ShapeError{Channel: -1, Want: len(ew.hdr.Channels), Got: len(frame)}
	}
	for i, ch := range ew.hdr.Channels {
		if len(frame[i]) != ch.SampleFrequency {
			return &ShapeError{Channel: i, Label: ch.Label, Want: ch.SampleFrequency, Got: len(frame[i])}
		}
	}

	record := make([]byte, 0, ew.hdr.recordBytes())
	for i, ch := range ew.hdr.Channels {
		for _, sample := range frame[i] {
			record = binary.LittleEndian.AppendUint16(record, uint16(ch.toDigital(sample)))
		}
	}

	recordStart := time.Duration(ew.dataRecords) * ew.hdr.DataRecordDuration
	record = append(record, ew.annotations.fill(recordStart, ew.hdr.DataRecordDuration, ew.hdr.AnnotationSamplesPerRecord*2)...)

	if _, err := ew.w.Write(record); err != nil {
		ew.fail()
		return fmt.Errorf("error writing data record: %w", err)
	}

	ew.dataRecords++
	return nil
}

// WriteFrames writes frames in order via repeated WriteFrame calls. It is
// purely a convenience for bulk writes; the output is identical.
func (ew *Writer) WriteFrames(frames [][][]float64) error {
	for i, frame := range frames {
		if err := ew.WriteFrame(frame); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return nil
}

// WriteAnnotation buffers a timestamped event for the reserved annotation
// signal. The entry is packed into the data record covering its onset, or a
// later record if that record is already written or its annotation capacity
// is exhausted. The onset must not precede the start of the first record.
func (ew *Writer) WriteAnnotation(onset, duration time.Duration, description string) error {
	if ew.state != StateOpen {
		return &StateError{Op: "WriteAnnotation", State: ew.state}
	}

	if onset < 0 {
		return &AnnotationRangeError{Onset: onset, Reason: "onset precedes the start of the first data record"}
	}
	if duration < 0 {
		return &AnnotationRangeError{Onset: onset, Reason: "negative duration"}
	}
	if strings.ContainsFunc(description, unicode.IsControl) {
		return &ValidationError{Field: "Annotation.Description", Reason: "control characters are not allowed"}
	}

	a := Annotation{Onset: onset, Duration: duration, Description: description}
	capacity := ew.hdr.AnnotationSamplesPerRecord*2 - talTimestampReserve
	if size := len(appendAnnotationTAL(nil, a)); size > capacity {
		return &AnnotationRangeError{
			Onset:  onset,
			Reason: fmt.Sprintf("encodes to %d bytes, exceeding the %d-byte record capacity", size, capacity),
		}
	}

	ew.annotations.push(a)
	return nil
}

// Finish patches the header with the final record count, flushes and
// releases the sink, and finishes the writer. Annotations still buffered at
// this point have no record to carry them; the file is finalized without
// them and the loss is reported as an AnnotationRangeError.
func (ew *Writer) Finish() error {
	if ew.state != StateOpen {
		return &StateError{Op: "Finish", State: ew.state}
	}
	ew.state = StateFinished

	if err := ew.writeHeader(ew.dataRecords); err != nil {
		ew.closeSink()
		return fmt.Errorf("error finalizing header: %w", err)
	}
	if err := ew.closeSink(); err != nil {
		return fmt.Errorf("error closing output: %w", err)
	}

	if dropped := ew.annotations.len(); dropped > 0 {
		return &AnnotationRangeError{
			Onset:  ew.annotations.pending[0].Onset,
			Reason: fmt.Sprintf("%d annotation(s) fell outside the %d recorded data record(s)", dropped, ew.dataRecords),
		}
	}
	return nil
}

// writeHeader renders the header with the given record count and writes it
// at the start of the sink.
func (ew *Writer) writeHeader(dataRecords int) error {
	if _, err := ew.w.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err := ew.w.Write(ew.hdr.render(dataRecords))
	return err
}

// fail releases the sink after an unrecoverable I/O error. Subsequent calls
// on the writer report a StateError.
func (ew *Writer) fail() {
	ew.state = StateFinished
	ew.closeSink()
}

func (ew *Writer) closeSink() error {
	if c, ok := ew.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// toDigital converts a physical value to a digital code using the channel's
// calibration bounds. The result is rounded to the nearest code, with
// out-of-range input clamped to the digital limits.
func (ch *Channel) toDigital(physical float64) int16 {
	digital := math.Round((physical-ch.PhysicalMin)/(ch.PhysicalMax-ch.PhysicalMin)*float64(ch.DigitalMax-ch.DigitalMin) + float64(ch.DigitalMin))
	if digital < float64(ch.DigitalMin) {
		return int16(ch.DigitalMin)
	}
	if digital > float64(ch.DigitalMax) {
		return int16(ch.DigitalMax)
	}
	return int16(digital)
}
