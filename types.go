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

type Version string

const (
	// Version0 represents the version of the EDF/EDF+ standard.
	Version0 Version = "0"
)

// Sex of the patient, as recorded in the EDF+ patient identification field.
type Sex int

const (
	SexFemale Sex = iota
	SexMale
)

// code returns the single-character code used in the patient identification field.
func (s Sex) code() string {
	if s == SexMale {
		return "M"
	}
	return "F"
}

// PatientInfo identifies the patient and the recording staff and equipment.
//
// The fields are composed into the EDF+ patient and recording identification
// fields of the header. Each subfield is truncated to the enclosing field's
// byte budget, embedded spaces are replaced with underscores, and empty
// subfields are recorded as "X", as the EDF+ standard prescribes.
type PatientInfo struct {
	Name       string // Name of the patient
	Code       string // Hospital administration code of the patient
	Sex        Sex    // Sex of the patient
	AdminCode  string // Administration code of the recording
	Technician string // Technician responsible for the recording
	Equipment  string // Equipment used for the recording
}

// Channel describes one signal in the recording.
type Channel struct {
	Label             string  // Label of the signal (e.g., EEG Fpz-Cz)
	Transducer        string  // Type of transducer used (e.g., AgAgCl electrode)
	PhysicalDimension string  // Physical dimension (e.g., uV, mV)
	PhysicalMin       float64 // Minimum physical value
	PhysicalMax       float64 // Maximum physical value
	DigitalMin        int     // Minimum digital value
	DigitalMax        int     // Maximum digital value
	Prefiltering      string  // Pre-filtering information (e.g., HP:0.1Hz LP:75Hz)
	SampleFrequency   int     // Number of samples in each data record for this signal
}

// Annotation is a timestamped event carried by the reserved annotations signal.
type Annotation struct {
	Onset       time.Duration // Offset of the event from the start of the recording
	Duration    time.Duration // Duration of the event, zero for instantaneous events
	Description string        // Textual description of the event
}

// Header describes an EDF+ recording before any samples are written. It is
// copied when the writer is constructed and is immutable from then on.
type Header struct {
	Version            Version       // Version of the EDF/EDF+ standard (usually "0")
	Patient            PatientInfo   // Patient and recording identification
	StartTime          time.Time     // Start date of the recording
	DataRecordDuration time.Duration // Duration of a single data record (default 1s)
	Channels           []Channel     // Details of each signal

	// AnnotationSamplesPerRecord overrides the size of the reserved
	// "EDF Annotations" signal that is appended automatically. Zero selects
	// the default of 57 two-byte samples (114 bytes) per data record.
	AnnotationSamplesPerRecord int
}

// signalCount returns the number of signals in each data record, including
// the reserved annotations signal.
func (hdr *Header) signalCount() int {
	return len(hdr.Channels) + 1
}

// headerBytes returns the total size of the rendered header.
func (hdr *Header) headerBytes() int {
	return 256 + hdr.signalCount()*256
}

// recordBytes returns the size of a single data record.
func (hdr *Header) recordBytes() int {
	n := hdr.AnnotationSamplesPerRecord
	for _, ch := range hdr.Channels {
		n += ch.SampleFrequency
	}
	return n * 2
}
