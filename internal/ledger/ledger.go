// Package ledger содержит расчёт разбиения суммы сделки на комиссию
// платформы и выплату специалисту.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/prolink-backend/internal/pkg/apperror"
)

// feeRate комиссия платформы: 10% от суммы сделки.
var feeRate = decimal.RequireFromString("0.10")

// Split разбивает валовую сумму на комиссию платформы и выплату специалисту.
//
// Комиссия округляется до цента по правилу half-up (0.5 цента округляется
// вверх); выплата всегда считается как остаток gross - fee и отдельно не
// округляется, поэтому fee + payout == gross выполняется точно для любых
// неотрицательных сумм с двумя знаками после запятой.
func Split(gross decimal.Decimal) (fee, payout decimal.Decimal, err error) {
	if gross.IsNegative() {
		return decimal.Zero, decimal.Zero,
			apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}

	// decimal.Round округляет half away from zero, что для неотрицательных
	// сумм совпадает с half-up.
	fee = gross.Mul(feeRate).Round(2)
	payout = gross.Sub(fee)
	return fee, payout, nil
}

// FeePercent возвращает ставку комиссии в процентах (для отображения).
func FeePercent() decimal.Decimal {
	return feeRate.Mul(decimal.NewFromInt(100))
}
