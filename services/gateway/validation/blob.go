// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation checks uploaded annotation blobs before a job is
// created. All failures here are synchronous 400-class rejections; no
// job is enqueued for an invalid blob.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/seizeval/seizeval/services/scoring/annotation"
)

const (
	// MaxBlobBytes is the upload size ceiling (100 MiB).
	MaxBlobBytes = 100 << 20

	// RequiredExtension is the annotation file extension.
	RequiredExtension = ".csv_bi"
)

var (
	// ErrBlobTooLarge indicates an upload over MaxBlobBytes.
	ErrBlobTooLarge = errors.New("annotation blob exceeds size limit")

	// ErrBadExtension indicates a filename without the expected extension.
	ErrBadExtension = errors.New("annotation filename must end in " + RequiredExtension)

	// ErrNotUTF8 indicates a blob that is not valid UTF-8.
	ErrNotUTF8 = errors.New("annotation blob is not valid UTF-8")

	// ErrNoVersionHeader indicates a blob without a recognisable version
	// header in its metadata block.
	ErrNoVersionHeader = errors.New("annotation blob lacks a version header")

	// ErrEmptyBlob indicates a zero-length upload.
	ErrEmptyBlob = errors.New("annotation blob is empty")
)

// CheckBlob validates one uploaded annotation blob.
//
// Inputs:
//   - filename: The client-supplied filename; only the extension is
//     checked, the name itself is never used as a path.
//   - data: The raw blob.
//
// Outputs:
//   - error: The first failed check, or nil.
func CheckBlob(filename string, data []byte) error {
	if !strings.HasSuffix(strings.ToLower(filename), RequiredExtension) {
		return fmt.Errorf("%w: %q", ErrBadExtension, filename)
	}
	if len(data) == 0 {
		return ErrEmptyBlob
	}
	if len(data) > MaxBlobBytes {
		return fmt.Errorf("%w: %d bytes", ErrBlobTooLarge, len(data))
	}
	if !utf8.Valid(data) {
		return ErrNotUTF8
	}
	if !hasVersionHeader(data) {
		return ErrNoVersionHeader
	}
	return nil
}

// hasVersionHeader scans the leading metadata block for the version
// magic. The parser enforces the exact value later; this is a cheap
// reject for obviously wrong uploads.
func hasVersionHeader(data []byte) bool {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "#") {
			// Metadata comments only appear before data rows.
			return false
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "#"))
		key, value, found := strings.Cut(payload, "=")
		if !found {
			continue
		}
		if strings.TrimSpace(key) == "version" &&
			strings.TrimSpace(value) == annotation.VersionMagic {
			return true
		}
	}
	return false
}
