// Package protocol defines the line-delimited wire format shared by the
// chat server and client.
//
// A record is a sequence of CRLF-separated fields terminated by a trailing
// CRLF. The first field is the command, the remaining fields are its
// arguments. CRLF is therefore both the field separator inside a record and
// the terminator of the record itself.
package protocol

import "strings"

// Delimiter separates fields within a record and terminates the record.
const Delimiter = "\r\n"

// Greeting is the fixed literal sent by the accepting side right after a
// socket is established. The initiating side validates the handshake
// against it and echoes it back as its first record.
const Greeting = "200: Success"

// Closing is the sentinel record announcing that the peer is closing the
// connection.
const Closing = "200: Close the connection"

// Commands used throughout the protocol.
const (
	CmdAuth       = "auth"        // S->C: request credentials
	CmdAuthRes    = "auth_res"    // C->S: username, room-id or "none"
	CmdLetIn      = "let_in"      // S->C: username, room-id, members...
	CmdStatUpdate = "stat_update" // S->C: severity, message
	CmdMsgIn      = "msg_in"      // C->S: message text
	CmdMsgOut     = "msg_out"     // S->C: username, text, timestamp
	CmdQuit       = "quit"        // either side: end the session
	CmdEmptyRes   = "empty_res"   // either side: acknowledgement with no data
)

// Severities carried by stat_update records.
const (
	SeverityWarning = "WARNING"
	SeverityNotice  = "NOTICE"
)

// RoomNone is the room-id argument a client sends to request a fresh room.
const RoomNone = "none"

// Encode builds the wire form of a record from its fields.
func Encode(fields ...string) []byte {
	return []byte(strings.Join(fields, Delimiter) + Delimiter)
}

// Decode splits raw bytes read from the wire into fields. The single
// trailing delimiter is stripped first so that a record encoded from
// [a, b, c] decodes back into exactly [a, b, c].
func Decode(data []byte) []string {
	s := strings.TrimSuffix(string(data), Delimiter)
	return strings.Split(s, Delimiter)
}

// IsClosing reports whether raw bytes read from the wire are the closing
// sentinel record.
func IsClosing(data []byte) bool {
	return string(data) == Closing+Delimiter || string(data) == Closing
}

// ValidUsername reports whether name is an identifier: non-empty, starting
// with a letter or underscore, with the remaining characters letters,
// digits, or underscores.
func ValidUsername(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// ValidRoomID reports whether id is exactly four decimal digits.
func ValidRoomID(id string) bool {
	if len(id) != 4 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
