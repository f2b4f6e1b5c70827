package converters

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

type unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

func registerPrimitives(r *Registry) {
	register := func(c *Func) {
		r.exact[typePair{c.Source, c.Destination}] = c
	}
	register(NewFunc(parseBool))
	register(NewFunc(parseSigned[int](strconv.IntSize)))
	register(NewFunc(parseSigned[int8](8)))
	register(NewFunc(parseSigned[int16](16)))
	register(NewFunc(parseSigned[int32](32)))
	register(NewFunc(parseSigned[int64](64)))
	register(NewFunc(parseUnsigned[uint](strconv.IntSize)))
	register(NewFunc(parseUnsigned[uint8](8)))
	register(NewFunc(parseUnsigned[uint16](16)))
	register(NewFunc(parseUnsigned[uint32](32)))
	register(NewFunc(parseUnsigned[uint64](64)))
	register(NewFunc(parseFloat[float32](32)))
	register(NewFunc(parseFloat[float64](64)))
	register(NewFunc(parseDuration))
}

func parseError(value string, target string, err error) error {
	return fmt.Errorf("cannot convert %q to %s: %w", value, target, err)
}

func parseBool(s string) (bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, parseError(s, "bool", err)
	}
	return v, nil
}

func parseSigned[T signed](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, bits)
		if err != nil {
			return 0, parseError(s, fmt.Sprintf("int%d", bits), err)
		}
		return T(v), nil
	}
}

func parseUnsigned[T unsigned](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseUint(strings.TrimSpace(s), 10, bits)
		if err != nil {
			return 0, parseError(s, fmt.Sprintf("uint%d", bits), err)
		}
		return T(v), nil
	}
}

func parseFloat[T ~float32 | ~float64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), bits)
		if err != nil {
			return 0, parseError(s, fmt.Sprintf("float%d", bits), err)
		}
		return T(v), nil
	}
}

// parseDuration accepts Go duration syntax ("1.5s", "250ms") or a bare number of milliseconds.
func parseDuration(s string) (time.Duration, error) {
	trimmed := strings.TrimSpace(s)
	if ms, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return time.Duration(ms * float64(time.Millisecond)), nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, parseError(s, "time.Duration", err)
	}
	return d, nil
}
