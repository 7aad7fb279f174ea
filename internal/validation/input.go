package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/prolink-backend/internal/models"
)

// Константы валидации
const (
	MinRequestTitleLength       = 5
	MaxRequestTitleLength       = 200
	MinRequestDescriptionLength = 50
	MaxRequestDescriptionLength = 5000
	MinTimelineDays             = 1
	MaxTimelineDays             = 365
	MaxNotesLength              = 5000
	MaxEvidenceLength           = 5000
	MaxAttachedFiles            = 10
)

// MaxPrice потолок цены сделки: 100 миллионов.
var MaxPrice = decimal.NewFromInt(100_000_000)

// ValidateLength проверяет длину строки в рунах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateRequestTitle проверяет заголовок заявки.
func ValidateRequestTitle(title string) error {
	if err := ValidateNonEmpty("заголовок заявки", title); err != nil {
		return err
	}
	return ValidateLength("заголовок заявки", strings.TrimSpace(title), MinRequestTitleLength, MaxRequestTitleLength)
}

// ValidateRequestDescription проверяет описание заявки.
func ValidateRequestDescription(description string) error {
	if err := ValidateNonEmpty("описание заявки", description); err != nil {
		return err
	}
	return ValidateLength("описание заявки", strings.TrimSpace(description), MinRequestDescriptionLength, MaxRequestDescriptionLength)
}

// ValidateTimeline проверяет срок выполнения в днях.
func ValidateTimeline(days int) error {
	if days < MinTimelineDays || days > MaxTimelineDays {
		return fmt.Errorf("срок выполнения должен быть от %d до %d дней", MinTimelineDays, MaxTimelineDays)
	}
	return nil
}

// ValidatePrice проверяет цену сделки.
func ValidatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return fmt.Errorf("цена должна быть положительной")
	}
	if price.GreaterThan(MaxPrice) {
		return fmt.Errorf("цена не может превышать %s", MaxPrice.StringFixed(0))
	}
	if price.Exponent() < -2 {
		return fmt.Errorf("цена указывается с точностью до цента")
	}
	return nil
}

// ValidateDisputeReason проверяет обоснование спора.
func ValidateDisputeReason(reason string) error {
	if err := ValidateNonEmpty("причина спора", reason); err != nil {
		return err
	}
	return ValidateLength("причина спора", strings.TrimSpace(reason), models.MinDisputeReasonLength, MaxEvidenceLength)
}

// ValidateResolutionNotes проверяет комментарий к решению спора.
func ValidateResolutionNotes(notes string) error {
	if err := ValidateNonEmpty("комментарий к решению", notes); err != nil {
		return err
	}
	return ValidateLength("комментарий к решению", strings.TrimSpace(notes), models.MinResolutionNotesLength, MaxNotesLength)
}

// ValidateEvidence проверяет текст доказательства стороны спора.
func ValidateEvidence(evidence string) error {
	if err := ValidateNonEmpty("доказательство", evidence); err != nil {
		return err
	}
	return ValidateLength("доказательство", strings.TrimSpace(evidence), 1, MaxEvidenceLength)
}

// ValidateNotes проверяет необязательный текстовый комментарий.
func ValidateNotes(fieldName string, notes *string) error {
	if notes == nil || *notes == "" {
		return nil
	}
	return ValidateLength(fieldName, strings.TrimSpace(*notes), 0, MaxNotesLength)
}

// ValidateAttachedFiles проверяет список приложенных файлов.
func ValidateAttachedFiles(files []string) error {
	if len(files) > MaxAttachedFiles {
		return fmt.Errorf("нельзя приложить больше %d файлов", MaxAttachedFiles)
	}
	for _, f := range files {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("ссылка на файл не может быть пустой")
		}
	}
	return nil
}
