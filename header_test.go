// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf_test

import (
	"os"
	"testing"
	"time"

	"github.com/edfkit/edf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderLayout(t *testing.T) {
	f, path := createTestFile(t)

	hdr := edf.Header{
		Patient: edf.PatientInfo{
			Name:       "Test Patient",
			Code:       "PSG 001",
			Sex:        edf.SexMale,
			Technician: "tech 1",
			Equipment:  "MegaAmp",
		},
		StartTime: time.Date(2024, 3, 1, 13, 45, 30, 0, time.UTC),
		Channels: []edf.Channel{
			{
				Label:             "EEG Fpz-Cz",
				Transducer:        "AgAgCl electrode",
				PhysicalDimension: "uV",
				PhysicalMin:       -500,
				PhysicalMax:       500,
				DigitalMin:        -2048,
				DigitalMax:        2047,
				Prefiltering:      "HP:0.1Hz LP:75Hz",
				SampleFrequency:   256,
			},
			{
				Label:             "Body temp",
				PhysicalDimension: "degC",
				PhysicalMin:       34,
				PhysicalMax:       40,
				DigitalMin:        -2048,
				DigitalMax:        2047,
				SampleFrequency:   1,
			},
		},
	}

	ew := edf.NewWriter(f, hdr)
	require.NoError(t, ew.Open())
	require.NoError(t, ew.Finish())

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	// Two channels plus the annotation signal: 256 + 3*256 bytes.
	require.Len(t, b, 1024)

	// Fixed general header.
	assert.Equal(t, "0       ", string(b[0:8]))
	assert.Equal(t, "PSG_001 M X Test_Patient", string(b[8:32]))
	assert.Equal(t, "Startdate 01-MAR-2024 X tech_1 MegaAmp", string(b[88:126]))
	assert.Equal(t, "01.03.24", string(b[168:176]))
	assert.Equal(t, "13.45.30", string(b[176:184]))
	assert.Equal(t, "1024    ", string(b[184:192]))
	assert.Equal(t, "EDF+C", string(b[192:197]))
	assert.Equal(t, "0       ", string(b[236:244]))
	assert.Equal(t, "1       ", string(b[244:252]))
	assert.Equal(t, "3   ", string(b[252:256]))

	// Per-channel table, field-major: all labels first.
	assert.Equal(t, "EEG Fpz-Cz      ", string(b[256:272]))
	assert.Equal(t, "Body temp       ", string(b[272:288]))
	assert.Equal(t, "EDF Annotations ", string(b[288:304]))

	// Transducer block follows the complete label block.
	assert.Equal(t, "AgAgCl electrode", string(b[304:320]))

	// Physical dimensions at 256 + 3*16 + 3*80.
	assert.Equal(t, "uV      ", string(b[544:552]))
	assert.Equal(t, "degC    ", string(b[552:560]))

	// Physical and digital bounds.
	assert.Equal(t, "-500.00 ", string(b[568:576]))
	assert.Equal(t, "34.00   ", string(b[576:584]))
	assert.Equal(t, "-1.00   ", string(b[584:592]))
	assert.Equal(t, "500.00  ", string(b[592:600]))
	assert.Equal(t, "40.00   ", string(b[600:608]))
	assert.Equal(t, "1.00    ", string(b[608:616]))
	assert.Equal(t, "-2048   ", string(b[616:624]))
	assert.Equal(t, "-32768  ", string(b[632:640]))
	assert.Equal(t, "2047    ", string(b[640:648]))
	assert.Equal(t, "32767   ", string(b[656:664]))

	// Prefiltering block.
	assert.Equal(t, "HP:0.1Hz LP:75Hz", string(b[664:680]))

	// Samples per record, including the annotation signal's capacity.
	assert.Equal(t, "256     ", string(b[904:912]))
	assert.Equal(t, "1       ", string(b[912:920]))
	assert.Equal(t, "57      ", string(b[920:928]))
}

func TestHeaderValidation(t *testing.T) {
	for _, tt := range []struct {
		name   string
		mutate func(hdr *edf.Header)
		field  string
	}{
		{
			name:   "no channels",
			mutate: func(hdr *edf.Header) { hdr.Channels = nil },
			field:  "Channels",
		},
		{
			name:   "physical bounds inverted",
			mutate: func(hdr *edf.Header) { hdr.Channels[0].PhysicalMax = -10 },
			field:  "Channels[0].PhysicalMax",
		},
		{
			name:   "digital bounds inverted",
			mutate: func(hdr *edf.Header) { hdr.Channels[0].DigitalMax = -32768 },
			field:  "Channels[0].DigitalMax",
		},
		{
			name:   "digital bounds exceed 16 bits",
			mutate: func(hdr *edf.Header) { hdr.Channels[0].DigitalMax = 40000 },
			field:  "Channels[0].DigitalMax",
		},
		{
			name:   "zero sample frequency",
			mutate: func(hdr *edf.Header) { hdr.Channels[0].SampleFrequency = 0 },
			field:  "Channels[0].SampleFrequency",
		},
		{
			name:   "reserved annotation label",
			mutate: func(hdr *edf.Header) { hdr.Channels[0].Label = "EDF Annotations" },
			field:  "Channels[0].Label",
		},
		{
			name:   "record duration too long",
			mutate: func(hdr *edf.Header) { hdr.DataRecordDuration = 61 * time.Second },
			field:  "DataRecordDuration",
		},
		{
			name:   "record duration too short",
			mutate: func(hdr *edf.Header) { hdr.DataRecordDuration = 500 * time.Microsecond },
			field:  "DataRecordDuration",
		},
		{
			name:   "record duration overflows header field",
			mutate: func(hdr *edf.Header) { hdr.DataRecordDuration = 10*time.Second + time.Microsecond },
			field:  "DataRecordDuration",
		},
		{
			name:   "data record too large",
			mutate: func(hdr *edf.Header) { hdr.Channels[0].SampleFrequency = 31000 },
			field:  "Channels",
		},
		{
			name:   "annotation capacity too small",
			mutate: func(hdr *edf.Header) { hdr.AnnotationSamplesPerRecord = 4 },
			field:  "AnnotationSamplesPerRecord",
		},
		{
			name:   "physical bounds overflow header field",
			mutate: func(hdr *edf.Header) { hdr.Channels[0].PhysicalMin = -1e12 },
			field:  "Channels[0].PhysicalMin",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := createTestFile(t)
			t.Cleanup(func() {
				require.NoError(t, f.Close())
			})

			hdr := testHeader()
			tt.mutate(&hdr)

			ew := edf.NewWriter(f, hdr)
			err := ew.Open()

			var validationErr *edf.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}
}

func TestHeaderFieldTruncation(t *testing.T) {
	f, path := createTestFile(t)

	hdr := testHeader()
	hdr.Channels[0].Label = "A label well beyond sixteen bytes"
	hdr.Patient.Name = "An unusually long patient name that cannot possibly fit inside the eighty byte identification field"

	ew := edf.NewWriter(f, hdr)
	require.NoError(t, ew.Open())
	require.NoError(t, ew.Finish())

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	// Oversized values are truncated to their exact field widths.
	assert.Equal(t, "A label well bey", string(b[256:272]))
	assert.Equal(t, "PSG001 M X An_unusually_long_patient_name_that_cannot_possibly_fit_inside_the_ei", string(b[8:88]))
}
