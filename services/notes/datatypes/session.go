// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "time"

// SessionToken is stored in the tokens collection keyed by Token. It is
// never mutated after issuance.
type SessionToken struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Expires   time.Time `json:"expires"`
}

// ExpiredAt reports whether the token is past its expiry at now. A token is
// still valid at exactly its expiry instant.
func (s *SessionToken) ExpiredAt(now time.Time) bool {
	return now.After(s.Expires)
}
