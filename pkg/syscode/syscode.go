// Package syscode implements the fixed-width base-36 path encoding used to
// position nodes in a SetCate tree. Grounded on original_source's
// rbum_set_serv.rs: sibling allocation takes a per-set distributed lock,
// queries the lexicographic max among existing children at the exact child
// depth, and increments the last L-wide segment in base-36.
package syscode

import (
	"strings"

	"github.com/ironvault/sentryiam/pkg/iamerrors"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
const base = 36

// Decode splits a sys_code into its L-wide segments.
func Decode(code string, segWidth int) []string {
	if code == "" {
		return nil
	}
	n := len(code) / segWidth
	segs := make([]string, n)
	for i := 0; i < n; i++ {
		segs[i] = code[i*segWidth : (i+1)*segWidth]
	}
	return segs
}

// Encode joins segments back into a sys_code.
func Encode(segs []string) string {
	return strings.Join(segs, "")
}

// Depth returns a sys_code's depth given the segment width.
func Depth(code string, segWidth int) int {
	if code == "" {
		return 0
	}
	return len(code) / segWidth
}

// ParentOf returns the sys_code of code's immediate parent, or "" if code is
// a root-level node.
func ParentOf(code string, segWidth int) string {
	if len(code) <= segWidth {
		return ""
	}
	return code[:len(code)-segWidth]
}

// ParentSysCodes returns the strict ancestors of code, deepest first, down
// to (but not including) the root.
func ParentSysCodes(code string, segWidth int) []string {
	var out []string
	cur := ParentOf(code, segWidth)
	for cur != "" {
		out = append(out, cur)
		cur = ParentOf(cur, segWidth)
	}
	return out
}

// IsDescendant reports whether a is a strict descendant of b.
func IsDescendant(a, b string) bool {
	if a == b {
		return false
	}
	return strings.HasPrefix(a, b)
}

// ValidateFormat checks a sys_code matches ^[0-9a-z]{n*L}$ for the given
// segment width.
func ValidateFormat(code string, segWidth int) error {
	if segWidth < 2 || segWidth > 8 {
		return iamerrors.Wrap(iamerrors.ErrInvalidInput, "segment width %d out of range [2,8]", segWidth)
	}
	if code == "" {
		return nil
	}
	if len(code)%segWidth != 0 {
		return iamerrors.Wrap(iamerrors.ErrInvalidInput, "sys_code %q length is not a multiple of %d", code, segWidth)
	}
	for _, r := range code {
		if strings.IndexRune(alphabet, r) < 0 {
			return iamerrors.Wrap(iamerrors.ErrInvalidInput, "sys_code %q contains an invalid character %q", code, r)
		}
	}
	return nil
}

// zeroSegment returns the seed segment ("0000" for width 4).
func zeroSegment(segWidth int) string {
	return strings.Repeat("0", segWidth)
}

// nextSegment increments a single base-36 segment by one, returning an error
// if it would overflow past "zzzz".
func nextSegment(seg string) (string, error) {
	digits := []byte(seg)
	for i := len(digits) - 1; i >= 0; i-- {
		idx := strings.IndexByte(alphabet, digits[i])
		if idx < base-1 {
			digits[i] = alphabet[idx+1]
			return string(digits), nil
		}
		digits[i] = alphabet[0]
	}
	return "", iamerrors.Wrap(iamerrors.ErrConflict, "sys_code segment %q saturated", seg)
}

// NextSibling computes the sys_code that should follow maxSibling (the
// lexicographically greatest existing child's full sys_code) under parent.
// If maxSibling is "", the tree under parent is empty and the seed segment
// is returned. segWidth is the configured L for the owning set.
func NextSibling(parent string, maxSibling string, segWidth int) (string, error) {
	if maxSibling == "" {
		return parent + zeroSegment(segWidth), nil
	}
	if len(maxSibling) < segWidth {
		return "", iamerrors.Wrap(iamerrors.ErrInternal, "max sibling %q shorter than segment width %d", maxSibling, segWidth)
	}
	lastSeg := maxSibling[len(maxSibling)-segWidth:]
	nextSeg, err := nextSegment(lastSeg)
	if err != nil {
		return "", err
	}
	return parent + nextSeg, nil
}
