package authinfo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// JSON document keys. "providers" is the legacy alias for "schemes",
// accepted when reading only.
const (
	jsonKeyUserID     = "id"
	jsonKeyUserName   = "name"
	jsonKeySchemes    = "schemes"
	jsonKeyProviders  = "providers"
	jsonKeyUser       = "user"
	jsonKeyActualUser = "actualUser"
	jsonKeyExpires    = "exp"
	jsonKeyCritical   = "cexp"
	jsonKeyDeviceID   = "device"
)

// UserToJSON encodes a user as a JSON document with keys "id", "name" and
// "schemes". A nil user encodes as JSON null.
func (ts *TypeSystem) UserToJSON(u *UserInfo) ([]byte, error) {
	if u == nil {
		return []byte("null"), nil
	}
	return json.Marshal(userToMap(u))
}

// UserFromJSON decodes a user document. JSON null decodes to nil. A
// malformed document fails with a [FormatError] carrying the offending
// fragment.
func (ts *TypeSystem) UserFromJSON(data []byte) (*UserInfo, error) {
	m, err := decodeObject(data)
	if err != nil {
		return nil, formatErr(string(data), err)
	}
	if m == nil {
		return nil, nil
	}
	u, err := ts.userFromMap(m)
	if err != nil {
		return nil, formatErr(string(data), err)
	}
	return u, nil
}

// ToJSON encodes a snapshot as a JSON document: "user" (the unsafe user),
// "actualUser" only when impersonated, "exp"/"cexp" as full-precision
// RFC 3339 timestamps when present, and "device" when bound. A nil
// snapshot encodes as JSON null.
func (ts *TypeSystem) ToJSON(a *AuthenticationInfo) ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	m := map[string]any{
		jsonKeyUser: userToMap(a.UnsafeUser()),
	}
	if a.IsImpersonated() {
		m[jsonKeyActualUser] = userToMap(a.UnsafeActualUser())
	}
	if !a.Expires().IsZero() {
		m[jsonKeyExpires] = a.Expires().Format(time.RFC3339Nano)
	}
	if !a.CriticalExpires().IsZero() {
		m[jsonKeyCritical] = a.CriticalExpires().Format(time.RFC3339Nano)
	}
	if a.DeviceID() != "" {
		m[jsonKeyDeviceID] = a.DeviceID()
	}
	return json.Marshal(m)
}

// FromJSON decodes a snapshot document and re-derives the level against
// the type system clock. JSON null decodes to nil. A malformed document
// fails with a [FormatError] carrying the offending fragment.
func (ts *TypeSystem) FromJSON(data []byte) (*AuthenticationInfo, error) {
	m, err := decodeObject(data)
	if err != nil {
		return nil, formatErr(string(data), err)
	}
	if m == nil {
		return nil, nil
	}
	info, err := ts.infoFromMap(m)
	if err != nil {
		return nil, formatErr(string(data), err)
	}
	return info, nil
}

func (ts *TypeSystem) infoFromMap(m map[string]any) (*AuthenticationInfo, error) {
	user, err := ts.nestedUser(m, jsonKeyUser)
	if err != nil {
		return nil, err
	}
	actualUser, err := ts.nestedUser(m, jsonKeyActualUser)
	if err != nil {
		return nil, err
	}
	expires, err := timeField(m, jsonKeyExpires)
	if err != nil {
		return nil, err
	}
	critical, err := timeField(m, jsonKeyCritical)
	if err != nil {
		return nil, err
	}
	deviceID, err := stringField(m, jsonKeyDeviceID)
	if err != nil {
		return nil, err
	}
	return newAuthenticationInfo(ts, actualUser, user, expires, critical, deviceID, ts.Now())
}

func (ts *TypeSystem) nestedUser(m map[string]any, key string) (*UserInfo, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	sub, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%q is not an object", key)
	}
	return ts.userFromMap(sub)
}

func (ts *TypeSystem) userFromMap(m map[string]any) (*UserInfo, error) {
	id, err := intField(m, jsonKeyUserID)
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return ts.Anonymous(), nil
	}
	name, err := stringField(m, jsonKeyUserName)
	if err != nil {
		return nil, err
	}
	v, ok := m[jsonKeySchemes]
	if !ok {
		v = m[jsonKeyProviders]
	}
	schemes, err := schemesFromAny(v)
	if err != nil {
		return nil, err
	}
	return NewUserInfo(id, name, schemes...)
}

func userToMap(u *UserInfo) map[string]any {
	return map[string]any{
		jsonKeyUserID:   u.UserID(),
		jsonKeyUserName: u.UserName(),
		jsonKeySchemes:  schemesToAny(u.Schemes()),
	}
}

func schemesToAny(schemes []SchemeUse) []any {
	out := make([]any, 0, len(schemes))
	for _, s := range schemes {
		out = append(out, map[string]any{
			"name":     s.Name(),
			"lastUsed": s.LastUsed().Format(time.RFC3339Nano),
		})
	}
	return out
}

func schemesFromAny(v any) ([]SchemeUse, error) {
	if v == nil {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("schemes is not an array")
	}
	schemes := make([]SchemeUse, 0, len(arr))
	for _, e := range arr {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("scheme entry is not an object")
		}
		name, err := stringField(m, "name")
		if err != nil {
			return nil, err
		}
		lastUsed, err := timeField(m, "lastUsed")
		if err != nil {
			return nil, err
		}
		if lastUsed.IsZero() {
			return nil, fmt.Errorf("scheme %q has no lastUsed", name)
		}
		s, err := NewSchemeUse(name, lastUsed)
		if err != nil {
			return nil, err
		}
		schemes = append(schemes, s)
	}
	return schemes, nil
}

// decodeObject unmarshals a JSON object keeping numbers exact. JSON null
// yields a nil map.
func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

func intField(m map[string]any, key string) (int, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, nil
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%q is not a number", key)
	}
	i, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("%q: %w", key, err)
	}
	return int(i), nil
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%q is not a string", key)
	}
	return s, nil
}

func timeField(m map[string]any, key string) (time.Time, error) {
	s, err := stringField(m, key)
	if err != nil || s == "" {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", key, err)
	}
	return t.UTC(), nil
}
