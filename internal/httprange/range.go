// Package httprange parses HTTP Range request headers into byte intervals.
package httprange

import (
	"errors"
	"regexp"
	"strconv"
)

// rangePattern matches "bytes[= :]<start?>-<end?>", case-insensitively, and
// tolerates the space/colon separator real-world clients sometimes send
// instead of "=".
var rangePattern = regexp.MustCompile(`(?i)^bytes[= :](\d*)-(\d*)$`)

// Spec is an inclusive byte interval, with either bound possibly unset
// until resolved against a known file length.
type Spec struct {
	Start int64
	End   int64
	// HasStart/HasEnd record whether the client specified that bound
	// explicitly, before Resolve fills in the open end.
	HasStart bool
	HasEnd   bool
}

// ErrUnsatisfiable indicates a syntactically valid range that does not fit
// inside the file, and should be answered with 416.
var ErrUnsatisfiable = errors.New("range not satisfiable")

// Parse interprets the raw value of a Range header. A missing or malformed
// header returns nil: the caller should treat that as "no range" and
// serve the whole file rather than erroring, matching real players that
// send odd or absent Range values.
func Parse(header string) *Spec {
	if header == "" {
		return nil
	}
	m := rangePattern.FindStringSubmatch(header)
	if m == nil {
		return nil
	}

	var spec Spec
	if m[1] != "" {
		start, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil
		}
		spec.Start = start
		spec.HasStart = true
	}
	if m[2] != "" {
		end, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return nil
		}
		spec.End = end
		spec.HasEnd = true
	}
	if !spec.HasStart && !spec.HasEnd {
		return nil
	}
	return &spec
}

// Resolve fills in unspecified bounds against a known file length and
// validates the result. An unspecified start defaults to 0; an unspecified
// end defaults to the last byte. Returns ErrUnsatisfiable if start > end,
// start < 0, or end >= length.
func (s *Spec) Resolve(length int64) (start, end int64, err error) {
	start = 0
	end = length - 1
	if s.HasStart {
		start = s.Start
	}
	if s.HasEnd {
		end = s.End
	}

	if start > end || start < 0 || end >= length {
		return 0, 0, ErrUnsatisfiable
	}
	return start, end, nil
}
