package dto

import (
	"time"

	"github.com/ignatzorin/deals-backend/internal/pkg/apperror"
)

// Даты принимаются в RFC3339 или как календарный день.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// ParseDate разбирает необязательную дату; пустая строка означает отсутствие даты.
func ParseDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, *raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperror.New(apperror.ErrCodeValidation, "некорректный формат даты: "+*raw)
}
