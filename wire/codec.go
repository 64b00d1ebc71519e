package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/arkevia/authinfo"
)

// FormatVersion is the current snapshot stream layout version.
const FormatVersion = 1

const (
	flagImpersonated = 1 << iota
	flagExpires
	flagCriticalExpires
	flagDeviceID
)

// ErrInvalidFormat is the sentinel matched by every decode failure,
// whatever the underlying cause (truncated stream, bad length, unknown
// version, invariant violation).
var ErrInvalidFormat = errors.New("invalid binary format")

// Remainder carries the extension points that let specialized type systems
// append extra fields after the standard layout. The write hooks run after
// the base fields; the read hooks receive the decoded base value and
// return the value to use in its place (WithExtra is the usual vehicle).
// All fields are optional.
type Remainder struct {
	WriteUser func(buf *bytes.Buffer, u *authinfo.UserInfo) error
	ReadUser  func(r *bytes.Reader, u *authinfo.UserInfo) (*authinfo.UserInfo, error)
	WriteInfo func(buf *bytes.Buffer, a *authinfo.AuthenticationInfo) error
	ReadInfo  func(r *bytes.Reader, a *authinfo.AuthenticationInfo) (*authinfo.AuthenticationInfo, error)
}

// Codec encodes and decodes snapshots for one type system. Safe for
// concurrent use.
type Codec struct {
	ts        *authinfo.TypeSystem
	remainder Remainder
}

// NewCodec builds a codec bound to ts.
func NewCodec(ts *authinfo.TypeSystem) *Codec {
	return &Codec{ts: ts}
}

// NewCodecWithRemainder builds a codec with extension hooks.
func NewCodecWithRemainder(ts *authinfo.TypeSystem, remainder Remainder) *Codec {
	return &Codec{ts: ts, remainder: remainder}
}

// EncodeInfo encodes a snapshot. A nil snapshot encodes as the single
// absent presence byte.
func (c *Codec) EncodeInfo(a *authinfo.AuthenticationInfo) ([]byte, error) {
	var buf bytes.Buffer
	if a == nil {
		buf.WriteByte(0)
		return buf.Bytes(), nil
	}
	buf.WriteByte(1)
	buf.WriteByte(FormatVersion)

	var flags byte
	if a.IsImpersonated() {
		flags |= flagImpersonated
	}
	if !a.Expires().IsZero() {
		flags |= flagExpires
	}
	if !a.CriticalExpires().IsZero() {
		flags |= flagCriticalExpires
	}
	if a.DeviceID() != "" {
		flags |= flagDeviceID
	}
	buf.WriteByte(flags)

	if err := c.encodeUserRecord(&buf, a.UnsafeUser()); err != nil {
		return nil, err
	}
	if a.IsImpersonated() {
		if err := c.encodeUserRecord(&buf, a.UnsafeActualUser()); err != nil {
			return nil, err
		}
	}
	if !a.Expires().IsZero() {
		writeInt64(&buf, a.Expires().UnixNano())
	}
	if !a.CriticalExpires().IsZero() {
		writeInt64(&buf, a.CriticalExpires().UnixNano())
	}
	if a.DeviceID() != "" {
		if err := writeString(&buf, a.DeviceID()); err != nil {
			return nil, err
		}
	}
	if c.remainder.WriteInfo != nil {
		if err := c.remainder.WriteInfo(&buf, a); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeInfo decodes a snapshot stream, re-deriving the level against the
// type system clock. The absent stream decodes to nil with a nil error.
func (c *Codec) DecodeInfo(data []byte) (*authinfo.AuthenticationInfo, error) {
	a, err := c.decodeInfo(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	return a, nil
}

func (c *Codec) decodeInfo(r *bytes.Reader) (*authinfo.AuthenticationInfo, error) {
	present, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	if present != 1 {
		return nil, fmt.Errorf("bad presence byte %d", present)
	}
	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("unknown format version %d", version)
	}
	flags, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	user, err := c.decodeUserRecord(r)
	if err != nil {
		return nil, err
	}
	var actualUser *authinfo.UserInfo
	if flags&flagImpersonated != 0 {
		actualUser, err = c.decodeUserRecord(r)
		if err != nil {
			return nil, err
		}
	}
	var expires, critical time.Time
	if flags&flagExpires != 0 {
		expires, err = readTime(r)
		if err != nil {
			return nil, err
		}
	}
	if flags&flagCriticalExpires != 0 {
		critical, err = readTime(r)
		if err != nil {
			return nil, err
		}
	}
	deviceID := ""
	if flags&flagDeviceID != 0 {
		deviceID, err = readString(r)
		if err != nil {
			return nil, err
		}
	}
	a, err := c.ts.CreateAt(actualUser, user, expires, critical, deviceID, c.ts.Now())
	if err != nil {
		return nil, err
	}
	if c.remainder.ReadInfo != nil {
		a, err = c.remainder.ReadInfo(r, a)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

// EncodeUser encodes a standalone user record, preceded by the format
// version byte. A nil user encodes as version plus the absent presence
// byte.
func (c *Codec) EncodeUser(u *authinfo.UserInfo) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(FormatVersion)
	if err := c.encodeUserRecord(&buf, u); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeUser decodes a standalone user record. The absent record decodes
// to nil with a nil error.
func (c *Codec) DecodeUser(data []byte) (*authinfo.UserInfo, error) {
	r := bytes.NewReader(data)
	version, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: unknown format version %d", ErrInvalidFormat, version)
	}
	u, err := c.decodeUserRecord(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	return u, nil
}

func (c *Codec) encodeUserRecord(buf *bytes.Buffer, u *authinfo.UserInfo) error {
	if u == nil {
		buf.WriteByte(0)
		return nil
	}
	buf.WriteByte(1)
	id := u.UserID()
	if id < math.MinInt32 || id > math.MaxInt32 {
		return fmt.Errorf("user id %d out of range", id)
	}
	var idBytes [4]byte
	binary.BigEndian.PutUint32(idBytes[:], uint32(int32(id)))
	buf.Write(idBytes[:])
	if err := writeString(buf, u.UserName()); err != nil {
		return err
	}
	schemes := u.Schemes()
	if len(schemes) > 255 {
		return errors.New("too many schemes")
	}
	buf.WriteByte(byte(len(schemes)))
	for _, s := range schemes {
		if err := writeString(buf, s.Name()); err != nil {
			return err
		}
		writeInt64(buf, s.LastUsed().UnixNano())
	}
	if c.remainder.WriteUser != nil {
		return c.remainder.WriteUser(buf, u)
	}
	return nil
}

func (c *Codec) decodeUserRecord(r *bytes.Reader) (*authinfo.UserInfo, error) {
	present, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	if present != 1 {
		return nil, fmt.Errorf("bad presence byte %d", present)
	}
	var idBytes [4]byte
	if _, err := io.ReadFull(r, idBytes[:]); err != nil {
		return nil, err
	}
	id := int(int32(binary.BigEndian.Uint32(idBytes[:])))
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	count, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	schemes := make([]authinfo.SchemeUse, 0, count)
	for i := 0; i < int(count); i++ {
		schemeName, err := readString(r)
		if err != nil {
			return nil, err
		}
		lastUsed, err := readTime(r)
		if err != nil {
			return nil, err
		}
		s, err := authinfo.NewSchemeUse(schemeName, lastUsed)
		if err != nil {
			return nil, err
		}
		schemes = append(schemes, s)
	}
	if id == 0 && name == "" && len(schemes) == 0 && c.remainder.ReadUser == nil {
		return c.ts.Anonymous(), nil
	}
	u, err := authinfo.NewUserInfo(id, name, schemes...)
	if err != nil {
		return nil, err
	}
	if c.remainder.ReadUser != nil {
		return c.remainder.ReadUser(r, u)
	}
	return u, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 255 {
		return fmt.Errorf("string too long (%d bytes)", len(s))
	}
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func writeInt64(buf *bytes.Buffer, v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	buf.Write(b[:])
}

func readTime(r *bytes.Reader) (time.Time, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(b[:]))).UTC(), nil
}
