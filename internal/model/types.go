package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// PermissionSet is stored as a comma separated text column and exposed as a JSON array.
type PermissionSet []string

// NewPermissionSet trims, drops empties and removes duplicates while keeping first-seen order.
func NewPermissionSet(codes ...string) PermissionSet {
	seen := make(map[string]struct{}, len(codes))
	set := make(PermissionSet, 0, len(codes))
	for _, code := range codes {
		for _, part := range strings.Split(code, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			set = append(set, part)
		}
	}
	return set
}

func (PermissionSet) GormDataType() string {
	return "text"
}

func (p PermissionSet) Value() (driver.Value, error) {
	return strings.Join(p, ","), nil
}

func (p *PermissionSet) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = PermissionSet{}
	case string:
		*p = NewPermissionSet(v)
	case []byte:
		*p = NewPermissionSet(string(v))
	default:
		return fmt.Errorf("model: cannot scan %T into PermissionSet", src)
	}
	return nil
}

// UnmarshalJSON accepts either a JSON array or a comma separated string.
func (p *PermissionSet) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*p = NewPermissionSet(list...)
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("model: permissions must be an array or a comma separated string")
	}
	*p = NewPermissionSet(joined)
	return nil
}

// Equal reports whether both sets hold the same identifiers, ignoring order.
func (p PermissionSet) Equal(other PermissionSet) bool {
	a := NewPermissionSet(p...)
	b := NewPermissionSet(other...)
	if len(a) != len(b) {
		return false
	}
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// StringList is stored as a JSON encoded text column.
type StringList []string

func (StringList) GormDataType() string {
	return "text"
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	raw, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("model: cannot scan %T into StringList", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return err
	}
	*l = list
	return nil
}
