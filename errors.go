/*
Copyright (C) 2026  vbase contributors

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package vbase

import "github.com/nyotadb/vbase/internal/verrors"

// Kind classifies an Error the way spec.md §7 enumerates: Io, Corrupted,
// Locked, Exists, NotExist, InvalidArgument.
type Kind = verrors.Kind

const (
	KindIO              = verrors.KindIO
	KindCorrupted       = verrors.KindCorrupted
	KindLocked          = verrors.KindLocked
	KindExists          = verrors.KindExists
	KindNotExist        = verrors.KindNotExist
	KindInvalidArgument = verrors.KindInvalidArgument
)

// Error is the single error type every public operation returns on
// failure. Callers dispatch on Kind, not on string matching.
type Error = verrors.Error

// IsKind reports whether err is a vbase Error of the given Kind.
func IsKind(err error, kind Kind) bool { return verrors.Is(err, kind) }

func invalidArgument(message string) *Error { return verrors.InvalidArgument(message) }
