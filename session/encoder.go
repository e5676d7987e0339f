package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersionCurrent = 1

const maxPermissions = 1024

var errInvalidBlob = errors.New("invalid session blob")

// Encode serializes a session to the compact binary storage format.
// SessionID is not part of the blob; it is the key.
func Encode(s *Session) ([]byte, error) {
	if len(s.Permissions) > maxPermissions {
		return nil, errors.New("too many permissions")
	}

	var buf bytes.Buffer
	buf.WriteByte(sessionFormatVersionCurrent)

	for _, field := range []string{
		s.UserID, s.Name, s.Email, s.Role, s.InstitutionID,
		s.IP, s.UserAgent, s.DeviceLabel, s.Location,
	} {
		if err := writeString(&buf, field); err != nil {
			return nil, err
		}
	}

	if err := binary.Write(&buf, binary.BigEndian, uint16(len(s.Permissions))); err != nil {
		return nil, err
	}
	for _, perm := range s.Permissions {
		if err := writeString(&buf, perm); err != nil {
			return nil, err
		}
	}

	buf.WriteByte(byte(s.Device))
	buf.Write(s.RefreshHash[:])

	for _, ts := range []int64{s.CreatedAt, s.LastSeenAt, s.ExpiresAt} {
		if err := binary.Write(&buf, binary.BigEndian, ts); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// Decode parses a storage blob. The caller sets SessionID from the key.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, errInvalidBlob
	}
	if version != sessionFormatVersionCurrent {
		return nil, errInvalidBlob
	}

	s := &Session{}
	for _, dst := range []*string{
		&s.UserID, &s.Name, &s.Email, &s.Role, &s.InstitutionID,
		&s.IP, &s.UserAgent, &s.DeviceLabel, &s.Location,
	} {
		v, err := readString(reader)
		if err != nil {
			return nil, errInvalidBlob
		}
		*dst = v
	}

	var permCount uint16
	if err := binary.Read(reader, binary.BigEndian, &permCount); err != nil {
		return nil, errInvalidBlob
	}
	if int(permCount) > maxPermissions {
		return nil, errInvalidBlob
	}
	if permCount > 0 {
		s.Permissions = make([]string, 0, permCount)
		for i := 0; i < int(permCount); i++ {
			perm, err := readString(reader)
			if err != nil {
				return nil, errInvalidBlob
			}
			s.Permissions = append(s.Permissions, perm)
		}
	}

	device, err := reader.ReadByte()
	if err != nil {
		return nil, errInvalidBlob
	}
	s.Device = Category(device)
	if s.Device > CategoryTablet {
		s.Device = CategoryUnknown
	}

	if _, err := io.ReadFull(reader, s.RefreshHash[:]); err != nil {
		return nil, errInvalidBlob
	}

	for _, dst := range []*int64{&s.CreatedAt, &s.LastSeenAt, &s.ExpiresAt} {
		if err := binary.Read(reader, binary.BigEndian, dst); err != nil {
			return nil, errInvalidBlob
		}
	}

	return s, nil
}

func writeString(buf *bytes.Buffer, v string) error {
	if len(v) > int(^uint16(0)) {
		return errors.New("string field too long")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(v))); err != nil {
		return err
	}
	buf.WriteString(v)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	var length uint16
	if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
		return "", err
	}
	if int(length) > reader.Len() {
		return "", errInvalidBlob
	}
	raw := make([]byte, length)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}
