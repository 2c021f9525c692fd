// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package deps

import "errors"

var (
	// ErrManifestParse indicates a manifest or lockfile could not be parsed.
	ErrManifestParse = errors.New("manifest parse failed")

	// ErrInvalidVulnerability indicates a vulnerable-range entry failed validation.
	ErrInvalidVulnerability = errors.New("invalid vulnerability entry")
)
