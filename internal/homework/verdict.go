package homework

import (
	"fmt"

	"homeworkbot/internal/apperr"
)

// Known review statuses.
const (
	StatusApproved  = "approved"
	StatusReviewing = "reviewing"
	StatusRejected  = "rejected"
)

// Verdicts maps a review status to the text shown in the chat.
var Verdicts = map[string]string{
	StatusApproved:  "Работа проверена: ревьюеру всё понравилось. Ура!",
	StatusReviewing: "Работа взята на проверку ревьюером.",
	StatusRejected:  "Работа проверена: у ревьюера есть замечания.",
}

// NoNewStatuses is reported when the API returns an empty homework list.
const NoNewStatuses = "Нет новых статусов работ."

// Name returns the homework_name of a record.
func Name(record any) (string, error) {
	m, ok := record.(map[string]any)
	if !ok {
		return "", apperr.New(apperr.KindType, "Работа в ответе API не является словарём")
	}
	raw, ok := m[keyName]
	if !ok {
		return "", apperr.New(apperr.KindMissingKey, "В ответе отсутствует ключ homework_name")
	}
	if s, ok := raw.(string); ok {
		return s, nil
	}
	return fmt.Sprint(raw), nil
}

// FormatStatusChange renders the chat message for a single homework record.
func FormatStatusChange(record any) (string, error) {
	name, err := Name(record)
	if err != nil {
		return "", err
	}
	m := record.(map[string]any)
	status, _ := m[keyStatus].(string)
	verdict, ok := Verdicts[status]
	if !ok {
		return "", apperr.Newf(apperr.KindValue, "Неизвестный статус работы - %s", describeStatus(m[keyStatus]))
	}
	return fmt.Sprintf("Изменился статус проверки работы \"%s\" %s", name, verdict), nil
}

func describeStatus(v any) string {
	switch s := v.(type) {
	case nil:
		return "<nil>"
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}
