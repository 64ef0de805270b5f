// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package jstep implements a forward-only, constant-memory JSON pull parser.
//
// A Parser reads its input one byte at a time from a Source, and never builds
// a tree of the input. The caller drives the parser by asking for the next
// piece of structure it expects, and the parser checks that the input agrees.
// Values the caller does not care about can be skipped without decoding them.
//
// # Sources
//
// A Source supplies the input. NewBytesSource reads a buffer already in
// memory; NewReaderSource reads from a stream, blocking until input is
// available:
//
//	p := jstep.NewParser(jstep.NewReaderSource(resp.Body))
//
// # Tokens
//
// Next advances the parser to the next lexical token, reported by Token:
//
//	for p.Next() == nil {
//	   log.Printf("Next token: %v", p.Token())
//	}
//
// Next returns io.EOF when the input has been fully consumed.
//
// The text of the most recent string or number lives in a scratch buffer
// owned by the parser. Text returns a view of it that is only valid until the
// next call that advances the parser; use Copy to keep it.
//
// This is not a complete JSON implementation. Numbers are runs of the
// characters "0123456789+-." with no exponent, and strings support only the
// escapes \r, \n, \t, \\ and \".
//
// # Navigation
//
// The structural methods consume the parts of objects and arrays:
//
//	Method                         | Input
//	------------------------------ | --------------------------------------
//	ObjectBegin, ObjectEnd         | { ... }
//	ObjectMember, Key              | "key":    (after a comma, if any)
//	ArrayBegin, ArrayEnd           | [ ... ]
//	ArrayItem                      | the comma before an item, if any
//	ReadString, ReadNumber, ...    | a single scalar value
//	SkipObject, SkipArray, SkipAny | a complete value, discarded
//
// The IsXAhead methods (IsStringAhead, IsObjectAhead, ...) report the kind of
// the next value without consuming it.
//
// # Errors
//
// Any lexical or structural failure is reported as a *SyntaxError, and is
// also logged to the diagnostic sink set by SetLogger. After a failure the
// parser cannot continue with the same input, and every later call reports
// the same error.
package jstep
