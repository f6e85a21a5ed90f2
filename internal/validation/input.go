package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ограничения текстовых полей предложений и переговоров.
const (
	MaxProposalNameLength        = 200
	MaxProposalDescriptionLength = 5000
	MaxTermsLength               = 10000
)

// ValidateLength проверяет длину строки в символах. Нулевая граница не проверяется.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s: не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s: не более %d символов", fieldName, max)
	}
	return nil
}

// ValidatePrintable отклоняет управляющие символы, кроме переводов строк и табуляции.
func ValidatePrintable(fieldName, value string) error {
	for _, r := range value {
		if r == '\n' || r == '\r' || r == '\t' {
			continue
		}
		if unicode.IsControl(r) {
			return fmt.Errorf("%s содержит недопустимые символы", fieldName)
		}
	}
	return nil
}

func ValidateProposalName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("название предложения обязательно")
	}
	if err := ValidateLength("название предложения", name, 0, MaxProposalNameLength); err != nil {
		return err
	}
	return ValidatePrintable("название предложения", name)
}

func ValidateDescription(description string) error {
	if err := ValidateLength("описание", description, 0, MaxProposalDescriptionLength); err != nil {
		return err
	}
	return ValidatePrintable("описание", description)
}

// ValidateTerms проверяет текст условий сделки. Пустые условия допустимы.
func ValidateTerms(terms string) error {
	if err := ValidateLength("условия", terms, 0, MaxTermsLength); err != nil {
		return err
	}
	return ValidatePrintable("условия", terms)
}
