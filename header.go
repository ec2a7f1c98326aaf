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
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// Recommended upper bound on the size of a single data record.
	maxRecordBytes = 61440

	// Valid range for the duration of a data record.
	minRecordDuration = time.Millisecond
	maxRecordDuration = 60 * time.Second
)

// validate checks the header invariants before any bytes are written.
func (hdr *Header) validate() error {
	if len(hdr.Channels) == 0 {
		return &ValidationError{Field: "Channels", Reason: "at least one channel is required"}
	}
	if hdr.DataRecordDuration < minRecordDuration || hdr.DataRecordDuration > maxRecordDuration {
		return &ValidationError{
			Field:  "DataRecordDuration",
			Reason: fmt.Sprintf("%s is outside the valid range [%s, %s]", hdr.DataRecordDuration, minRecordDuration, maxRecordDuration),
		}
	}
	if len(formatSeconds(hdr.DataRecordDuration)) > 8 {
		return &ValidationError{
			Field:  "DataRecordDuration",
			Reason: fmt.Sprintf("%s does not fit the 8-byte header field", hdr.DataRecordDuration),
		}
	}
	if hdr.AnnotationSamplesPerRecord < minAnnotationSamplesPerRecord {
		return &ValidationError{
			Field:  "AnnotationSamplesPerRecord",
			Reason: fmt.Sprintf("must be at least %d samples per record", minAnnotationSamplesPerRecord),
		}
	}

	for i, ch := range hdr.Channels {
		field := func(name string) string {
			return fmt.Sprintf("Channels[%d].%s", i, name)
		}
		if strings.TrimSpace(ch.Label) == annotationLabel {
			return &ValidationError{Field: field("Label"), Reason: fmt.Sprintf("%q is reserved for the annotation signal", annotationLabel)}
		}
		if ch.SampleFrequency <= 0 {
			return &ValidationError{Field: field("SampleFrequency"), Reason: "must be a positive number of samples per record"}
		}
		if ch.PhysicalMax <= ch.PhysicalMin {
			return &ValidationError{Field: field("PhysicalMax"), Reason: fmt.Sprintf("must be greater than PhysicalMin (%g >= %g)", ch.PhysicalMin, ch.PhysicalMax)}
		}
		if ch.DigitalMax <= ch.DigitalMin {
			return &ValidationError{Field: field("DigitalMax"), Reason: fmt.Sprintf("must be greater than DigitalMin (%d >= %d)", ch.DigitalMin, ch.DigitalMax)}
		}
		if ch.DigitalMin < math.MinInt16 {
			return &ValidationError{Field: field("DigitalMin"), Reason: fmt.Sprintf("%d exceeds the 16-bit sample range", ch.DigitalMin)}
		}
		if ch.DigitalMax > math.MaxInt16 {
			return &ValidationError{Field: field("DigitalMax"), Reason: fmt.Sprintf("%d exceeds the 16-bit sample range", ch.DigitalMax)}
		}
		if len(physicalValueString(ch.PhysicalMin)) > 8 || len(physicalValueString(ch.PhysicalMax)) > 8 {
			return &ValidationError{Field: field("PhysicalMin"), Reason: "physical bounds do not fit the 8-byte header field"}
		}
	}

	if hdr.recordBytes() > maxRecordBytes {
		return &ValidationError{
			Field:  "Channels",
			Reason: fmt.Sprintf("data record is %d bytes, max is %d bytes", hdr.recordBytes(), maxRecordBytes),
		}
	}

	return nil
}

// render produces the complete header block: the 256-byte general header
// followed by the per-channel table. The table is laid out field-major (all
// labels, then all transducers, and so on) as the EDF specification requires.
func (hdr *Header) render(dataRecords int) []byte {
	var b bytes.Buffer
	b.Grow(hdr.headerBytes())

	// Version, patient and recording identification.
	b.WriteString(headerField(string(hdr.Version), 8))
	b.WriteString(headerField(hdr.Patient.identification(), 80))
	b.WriteString(headerField(hdr.recordingIdentification(), 80))

	// Start date and time.
	b.WriteString(headerField(hdr.StartTime.Format("02.01.06"), 8))
	b.WriteString(headerField(hdr.StartTime.Format("15.04.05"), 8))

	// Header size, EDF+ continuous-recording marker, record count and layout.
	b.WriteString(headerField(strconv.Itoa(hdr.headerBytes()), 8))
	b.WriteString(headerField("EDF+C", 44))
	b.WriteString(headerField(strconv.Itoa(dataRecords), 8))
	b.WriteString(headerField(formatSeconds(hdr.DataRecordDuration), 8))
	b.WriteString(headerField(strconv.Itoa(hdr.signalCount()), 4))

	signals := append(append(make([]Channel, 0, hdr.signalCount()), hdr.Channels...),
		annotationChannel(hdr.AnnotationSamplesPerRecord))

	for _, sig := range signals {
		b.WriteString(headerField(sig.Label, 16))
	}
	for _, sig := range signals {
		b.WriteString(headerField(sig.Transducer, 80))
	}
	for _, sig := range signals {
		b.WriteString(headerField(sig.PhysicalDimension, 8))
	}
	for _, sig := range signals {
		b.WriteString(formatPhysicalValue(sig.PhysicalMin))
	}
	for _, sig := range signals {
		b.WriteString(formatPhysicalValue(sig.PhysicalMax))
	}
	for _, sig := range signals {
		b.WriteString(headerField(strconv.Itoa(sig.DigitalMin), 8))
	}
	for _, sig := range signals {
		b.WriteString(headerField(strconv.Itoa(sig.DigitalMax), 8))
	}
	for _, sig := range signals {
		b.WriteString(headerField(sig.Prefiltering, 80))
	}
	for _, sig := range signals {
		b.WriteString(headerField(strconv.Itoa(sig.SampleFrequency), 8))
	}

	// Reserved for future use.
	for range signals {
		b.WriteString(headerField("", 32))
	}

	return b.Bytes()
}

// identification composes the EDF+ local patient identification field:
// code, sex, birthdate and name. The birthdate is not tracked and is
// recorded as unknown.
func (p PatientInfo) identification() string {
	return strings.Join([]string{
		identSubfield(p.Code),
		p.Sex.code(),
		"X",
		identSubfield(p.Name),
	}, " ")
}

// recordingIdentification composes the EDF+ local recording identification
// field: the literal "Startdate", the start date, and the administration
// code, technician and equipment subfields.
func (hdr *Header) recordingIdentification() string {
	return strings.Join([]string{
		"Startdate",
		strings.ToUpper(hdr.StartTime.Format("02-Jan-2006")),
		identSubfield(hdr.Patient.AdminCode),
		identSubfield(hdr.Patient.Technician),
		identSubfield(hdr.Patient.Equipment),
	}, " ")
}

// identSubfield prepares a value for use inside an identification field.
// Subfields may not contain spaces, and empty subfields are recorded as "X".
func identSubfield(s string) string {
	if s == "" {
		return "X"
	}
	return strings.ReplaceAll(s, " ", "_")
}

// headerField renders a fixed-width ASCII header field, space-padded and
// truncated to exactly width bytes.
func headerField(s string, width int) string {
	return fmt.Sprintf("%-*s", width, s)[:width]
}

// physicalValueString renders a physical bound for its 8-byte header field,
// with 2 decimal places when they fit and none otherwise.
func physicalValueString(val float64) string {
	s := fmt.Sprintf("%.2f", val)
	if len(s) > 8 {
		s = fmt.Sprintf("%.0f", val)
	}
	return s
}

func formatPhysicalValue(val float64) string {
	return headerField(physicalValueString(val), 8)
}

// formatSeconds renders a duration as decimal seconds with microsecond
// precision and no trailing zeros, e.g. "1", "0.5", "2.000001".
func formatSeconds(d time.Duration) string {
	us := d.Microseconds()
	neg := us < 0
	if neg {
		us = -us
	}
	s := strconv.FormatInt(us/1e6, 10)
	if frac := us % 1e6; frac != 0 {
		fs := strconv.FormatInt(frac, 10)
		fs = strings.Repeat("0", 6-len(fs)) + fs
		s += "." + strings.TrimRight(fs, "0")
	}
	if neg {
		s = "-" + s
	}
	return s
}
