package validate

import (
	"encoding/json"
	"fmt"
	"strings"
)

// dangerousKeys are object keys that must never be accepted from
// client-supplied JSON filters — they have no meaning in this store but
// admitting them invites confusion with prototype-pollution-style
// attacks against any downstream tooling that treats filters as a
// generic object.
var dangerousKeys = map[string]struct{}{
	"__proto__":   {},
	"constructor": {},
	"prototype":   {},
}

// SafeUnmarshal decodes data into v, rejecting any object key in
// dangerousKeys and any string value containing an executable-content
// marker, at any nesting depth.
func SafeUnmarshal(data []byte, v interface{}) error {
	var generic interface{}
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if err := scan(generic); err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func scan(node interface{}) error {
	switch n := node.(type) {
	case map[string]interface{}:
		for k, val := range n {
			if _, bad := dangerousKeys[strings.ToLower(k)]; bad {
				return fmt.Errorf("rejected key %q", k)
			}
			if err := scan(val); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, item := range n {
			if err := scan(item); err != nil {
				return err
			}
		}
	case string:
		if containsExecutableContent(n) {
			return fmt.Errorf("rejected value containing executable content")
		}
	}
	return nil
}

func containsExecutableContent(s string) bool {
	lower := strings.ToLower(s)
	markers := []string{"<script", "javascript:", "onerror=", "onload="}
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
