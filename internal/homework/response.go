package homework

import (
	"encoding/json"
	"math"
	"strconv"

	"homeworkbot/internal/apperr"
)

const (
	keyHomeworks   = "homeworks"
	keyCurrentDate = "current_date"
	keyName        = "homework_name"
	keyStatus      = "status"
)

// ExtractHomeworks validates the response shape and returns its homeworks
// array unchanged (possibly empty).
func ExtractHomeworks(resp any) ([]any, error) {
	m, ok := resp.(map[string]any)
	if !ok {
		return nil, apperr.New(apperr.KindType, "Ошибка в типе ответа API: ответ не является словарём")
	}
	raw, ok := m[keyHomeworks]
	if !ok {
		return nil, apperr.New(apperr.KindEmptyResponse, "Пустой ответ от API")
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, apperr.New(apperr.KindType, "Homeworks не является списком")
	}
	if _, ok := m[keyCurrentDate]; !ok {
		return nil, apperr.New(apperr.KindEmptyResponse, "Пустой ответ от API")
	}
	return list, nil
}

// CurrentDate returns the server timestamp of resp, if it carries a usable one.
func CurrentDate(resp any) (int64, bool) {
	m, ok := resp.(map[string]any)
	if !ok {
		return 0, false
	}
	switch v := m[keyCurrentDate].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return floatToUnix(f)
	case float64:
		return floatToUnix(v)
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func floatToUnix(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
