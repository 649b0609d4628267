package config

import "fmt"

func Bool(b bool) *bool {
	return &b
}

func BoolVal(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}

func BoolGoString(b *bool) string {
	if b == nil {
		return "(*bool)(nil)"
	}
	return fmt.Sprintf("%t", *b)
}

func Int(i int) *int {
	return &i
}

func IntVal(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

func IntGoString(i *int) string {
	if i == nil {
		return "(*int)(nil)"
	}
	return fmt.Sprintf("%d", *i)
}

func String(s string) *string {
	return &s
}

func StringVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func StringGoString(s *string) string {
	if s == nil {
		return "(*string)(nil)"
	}
	return fmt.Sprintf("%q", *s)
}

func StringPresent(s *string) bool {
	if s == nil {
		return false
	}
	return *s != ""
}
