package message

import "github.com/Iron-Ham/kepler/internal/errors"

// MarshalBinary encodes the message as WireSize bytes: the length byte
// followed by the whole payload buffer.
func (m *Message) MarshalBinary() ([]byte, error) {
	return m.AppendBinary(make([]byte, 0, WireSize))
}

// AppendBinary appends the wire encoding of the message to b.
func (m *Message) AppendBinary(b []byte) ([]byte, error) {
	b = append(b, m.Len)
	return append(b, m.Data[:]...), nil
}

// UnmarshalBinary decodes a WireSize frame into the message. Only the length
// and payload are written; ownership state is untouched.
func (m *Message) UnmarshalBinary(b []byte) error {
	if len(b) != WireSize {
		return errors.NewValidationError("frame has wrong size").
			WithField("frame").
			WithValue(len(b)).
			WithCause(errors.ErrInvalidFrame)
	}
	m.Len = b[0]
	copy(m.Data[:], b[1:])
	return nil
}
