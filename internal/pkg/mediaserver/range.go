package mediaserver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yigit/coursehub/internal/pkg/apperrors"
)

const rangeUnit = "bytes="

// Span is an inclusive byte interval of a file
type Span struct {
	Start int64
	End   int64
}

// Length is the number of bytes covered by the span
func (s Span) Length() int64 {
	return s.End - s.Start + 1
}

// ContentRange formats the span for the Content-Range header
func (s Span) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", s.Start, s.End, size)
}

// ParseRange parses a Range header against a file of the given size.
// Supported forms are start-end, start- and -suffix. Only the first range of a list is used.
// Syntax errors return ErrMalformedRange, spans outside the file ErrRangeNotSatisfiable.
func ParseRange(header string, size int64) (Span, error) {
	set, ok := strings.CutPrefix(strings.TrimSpace(header), rangeUnit)
	if !ok {
		return Span{}, apperrors.ErrMalformedRange
	}
	if first, _, found := strings.Cut(set, ","); found {
		set = first
	}
	startStr, endStr, found := strings.Cut(strings.TrimSpace(set), "-")
	if !found {
		return Span{}, apperrors.ErrMalformedRange
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)

	if startStr == "" {
		suffix, err := parseOffset(endStr)
		if err != nil {
			return Span{}, err
		}
		if suffix == 0 || size == 0 {
			return Span{}, apperrors.ErrRangeNotSatisfiable
		}
		if suffix > size {
			suffix = size
		}
		return Span{Start: size - suffix, End: size - 1}, nil
	}

	start, err := parseOffset(startStr)
	if err != nil {
		return Span{}, err
	}
	end := size - 1
	if endStr != "" {
		if end, err = parseOffset(endStr); err != nil {
			return Span{}, err
		}
	}

	if start > end || start >= size || end >= size {
		return Span{}, apperrors.ErrRangeNotSatisfiable
	}
	return Span{Start: start, End: end}, nil
}

// parseOffset accepts only plain decimal digits, so signs and spaces are malformed
func parseOffset(s string) (int64, error) {
	if s == "" {
		return 0, apperrors.ErrMalformedRange
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, apperrors.ErrMalformedRange
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, apperrors.ErrMalformedRange
	}
	return n, nil
}
