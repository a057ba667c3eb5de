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

// Package verrors defines the small, closed error taxonomy shared by every
// layer of vbase: journal, manifest, recovery and the core coordinator all
// report failures through this type rather than ad-hoc wrapped errors, so
// callers can dispatch on Kind with a type switch.
package verrors

import "fmt"

type Kind int

const (
	KindIO Kind = iota
	KindCorrupted
	KindLocked
	KindExists
	KindNotExist
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "Io"
	case KindCorrupted:
		return "Corrupted"
	case KindLocked:
		return "Locked"
	case KindExists:
		return "Exists"
	case KindNotExist:
		return "NotExist"
	case KindInvalidArgument:
		return "InvalidArgument"
	default:
		return "Unknown"
	}
}

// Error is the single error type observable at the vbase API surface.
// Name identifies the offending file or logical entity (a journal path, a
// bucket name, an engine name); Message gives the human-readable detail.
type Error struct {
	Kind    Kind
	Name    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s(%s): %s", e.Kind, e.Name, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func IO(name string, cause error) *Error {
	return &Error{Kind: KindIO, Name: name, Message: cause.Error(), Cause: cause}
}

func Corrupted(name, message string) *Error {
	return &Error{Kind: KindCorrupted, Name: name, Message: message}
}

func Locked(path string) *Error {
	return &Error{Kind: KindLocked, Name: path, Message: "already locked"}
}

func Exists(name string) *Error {
	return &Error{Kind: KindExists, Name: name, Message: "already exists"}
}

func NotExist(name string) *Error {
	return &Error{Kind: KindNotExist, Name: name, Message: "does not exist"}
}

func InvalidArgument(message string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: message}
}

// Is reports whether err is a *Error of the given kind, unwrapping along
// the way. It mirrors the narrow, type-switch-based error inspection the
// teacher corpus uses instead of deep wrapping chains.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind == kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
