package service

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
)

var (
	timeType  = reflect.TypeOf(time.Time{})
	int64Type = reflect.TypeOf(int64(0))
)

// ParseTimestamp converts any stored timestamp representation into a
// time.Time. Accepted forms: time.Time, epoch milliseconds as an integer or
// float, numeric or RFC3339 strings, and {seconds, nanoseconds} maps.
func ParseTimestamp(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t == nil {
			return time.Time{}, fmt.Errorf("nil timestamp")
		}
		return *t, nil
	case int64:
		return time.UnixMilli(t), nil
	case int:
		return time.UnixMilli(int64(t)), nil
	case float64:
		return millisToTime(t), nil
	case string:
		if ms, err := strconv.ParseFloat(t, 64); err == nil {
			return millisToTime(ms), nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("unrecognised timestamp %q", t)
		}
		return parsed, nil
	case map[string]interface{}:
		sec, okSec := asInt64(firstOf(t, "seconds", "_seconds"))
		nsec, _ := asInt64(firstOf(t, "nanoseconds", "_nanoseconds"))
		if !okSec {
			return time.Time{}, fmt.Errorf("timestamp map without seconds")
		}
		return time.Unix(sec, nsec), nil
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
}

// TimestampDecodeHook lets mapstructure fill time.Time fields from any form
// ParseTimestamp accepts, and int64 millisecond fields from times or strings.
func TimestampDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		switch to {
		case timeType:
			if from == timeType {
				return data, nil
			}
			return ParseTimestamp(data)
		case int64Type:
			switch from {
			case timeType, reflect.TypeOf(""), reflect.TypeOf(float64(0)):
				t, err := ParseTimestamp(data)
				if err != nil {
					return nil, err
				}
				return t.UnixMilli(), nil
			}
		}
		return data, nil
	}
}

func millisToTime(ms float64) time.Time {
	whole, frac := math.Modf(ms)
	return time.UnixMilli(int64(whole)).Add(time.Duration(math.Round(frac * float64(time.Millisecond))))
}

func firstOf(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
