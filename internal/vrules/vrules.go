// Package vrules holds the input rules applied before any entity is created
// or changed. Every function trims string fields, checks every rule and
// returns either the normalized input or a *validator.Error listing all
// violations.
package vrules

import (
	"math"
	"strings"
	"time"

	"github.com/protomem/credit-bank/internal/model"
	"github.com/protomem/credit-bank/internal/validator"
	"github.com/shopspring/decimal"
)

const (
	MinCreditSize = 5000
	MinPeriod     = 3
	MinPassword   = 3
	AdultAge      = 18

	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72

	// adultDays is the fixed offset used for the age check. It is not
	// calendar exact: leap days between birth and today are ignored.
	adultDays = 365*AdultAge + 1
)

const (
	maxNameLen     = 50
	maxGottenByLen = 255
	innLen         = 12
	maxAddressLen  = 255
	maxJobLen      = 255
	maxPhoneLen    = 20
	maxFamilyLen   = 16
	maxTargetLen   = 255
	passportSerLen = 4
	passportNumLen = 6

	moneyPlaces   = 2
	percentPlaces = 3
)

// Upper bounds of the NUMERIC(14,2) money and NUMERIC(7,3) percent columns.
var (
	maxMoney   = decimal.New(1, 12)
	maxPercent = decimal.New(1, 4)
)

func ValidateCredentials(in model.Credentials) (model.Credentials, error) {
	in.Username = strings.TrimSpace(in.Username)

	var v validator.Validator
	v.CheckField(validator.NotBlank(in.Username), "username", "cannot be blank")
	v.CheckField(validator.NotBlank(in.Password), "password", "cannot be blank")

	return in, v.Err()
}

// ValidateUser checks a registration payload. today is the reference day for
// the birthday rules.
func ValidateUser(in model.RegisterUserInput, today time.Time) (model.RegisterUserInput, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.SecondName = strings.TrimSpace(in.SecondName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.GottenBy = strings.TrimSpace(in.GottenBy)
	in.INN = strings.TrimSpace(in.INN)
	in.RegistrationAddress = strings.TrimSpace(in.RegistrationAddress)
	in.CurrentJob = strings.TrimSpace(in.CurrentJob)
	in.Phone = strings.TrimSpace(in.Phone)
	in.FamilyStatus = strings.TrimSpace(in.FamilyStatus)

	var v validator.Validator

	v.CheckField(validator.IsEmail(in.Email), "email", "must be a valid email address")
	v.CheckField(validator.MinRunes(in.Password, MinPassword), "password", "must be at least 3 characters long")
	v.CheckField(len(in.Password) <= MaxPasswordBytes, "password", "must not be more than 72 bytes long")

	validateName(&v, "first_name", in.FirstName)
	validateName(&v, "second_name", in.SecondName)
	validateName(&v, "last_name", in.LastName)
	validateBirthday(&v, in.Birthday, today)
	validatePassportSerial(&v, in.PassportSerial)
	validatePassportNumber(&v, in.PassportNumber)
	validateINN(&v, in.INN)
	validatePhone(&v, in.Phone)

	v.CheckField(validator.MaxRunes(in.GottenBy, maxGottenByLen), "gotten_by", "must not be more than 255 characters long")
	v.CheckField(validator.MaxRunes(in.RegistrationAddress, maxAddressLen), "registration_address", "must not be more than 255 characters long")
	v.CheckField(validator.MaxRunes(in.CurrentJob, maxJobLen), "current_job", "must not be more than 255 characters long")
	v.CheckField(validator.MaxRunes(in.FamilyStatus, maxFamilyLen), "family_status", "must not be more than 16 characters long")
	v.CheckField(in.PerMonthProfit.IsPositive(), "per_month_profit", "must be greater than zero")
	validateMoney(&v, "per_month_profit", in.PerMonthProfit)

	return in, v.Err()
}

func ValidateOrder(in model.OrderInput) (model.OrderInput, error) {
	in.Target = strings.TrimSpace(in.Target)

	var v validator.Validator

	v.CheckField(in.UserID > 0, "user_id", "must be a positive id")
	v.CheckField(in.CreditSize.GreaterThanOrEqual(decimal.NewFromInt(MinCreditSize)), "credit_size", "must be at least 5000")
	validateMoney(&v, "credit_size", in.CreditSize)
	v.CheckField(validator.AtLeast(in.Period, MinPeriod), "period", "must be at least 3 months")
	v.CheckField(in.Period <= math.MaxInt32, "period", "must not be more than 2147483647 months")
	v.CheckField(validator.MaxRunes(in.Target, maxTargetLen), "target", "must not be more than 255 characters long")

	return in, v.Err()
}

func ValidateResponse(in model.ResponseInput) (model.ResponseInput, error) {
	var v validator.Validator

	v.CheckField(in.OrderID > 0, "order_id", "must be a positive id")
	v.CheckField(!in.Percent.IsNegative(), "percent", "must not be negative")
	v.CheckField(!in.MonthlyPay.IsNegative(), "monthly_pay", "must not be negative")
	validatePercent(&v, "percent", in.Percent)
	validateMoney(&v, "monthly_pay", in.MonthlyPay)

	return in, v.Err()
}

func ValidateCredit(in model.CreditInput) (model.CreditInput, error) {
	var v validator.Validator

	v.CheckField(in.UserID > 0, "user_id", "must be a positive id")
	if in.ResponseID != nil {
		v.CheckField(*in.ResponseID > 0, "response_id", "must be a positive id")
	}
	v.CheckField(!in.NextPayDate.IsZero(), "next_pay_date", "is required")
	v.CheckField(!in.RemainToPay.IsNegative(), "remain_to_pay", "must not be negative")
	v.CheckField(!in.MonthlyPay.IsNegative(), "monthly_pay", "must not be negative")
	v.CheckField(!in.Percent.IsNegative(), "percent", "must not be negative")
	validateMoney(&v, "remain_to_pay", in.RemainToPay)
	validateMoney(&v, "monthly_pay", in.MonthlyPay)
	validatePercent(&v, "percent", in.Percent)

	return in, v.Err()
}

func validateMoney(v *validator.Validator, key string, value decimal.Decimal) {
	v.CheckField(value.Abs().LessThan(maxMoney), key, "must be less than 1000000000000")
	v.CheckField(hasPlaces(value, moneyPlaces), key, "must have at most 2 decimal places")
}

func validatePercent(v *validator.Validator, key string, value decimal.Decimal) {
	v.CheckField(value.Abs().LessThan(maxPercent), key, "must be less than 10000")
	v.CheckField(hasPlaces(value, percentPlaces), key, "must have at most 3 decimal places")
}

// hasPlaces reports whether value is stored without rounding at the given scale.
func hasPlaces(value decimal.Decimal, places int32) bool {
	return value.Equal(value.Truncate(places))
}

func validateName(v *validator.Validator, key, value string) {
	v.CheckField(validator.NotBlank(value), key, "cannot be blank")
	v.CheckField(validator.MaxRunes(value, maxNameLen), key, "must not be more than 50 characters long")
}

func validatePassportSerial(v *validator.Validator, serial int) {
	v.CheckField(validator.Positive(serial), "passport_serial", "must be a positive number")
	v.CheckField(validator.DigitsInNumber(serial, passportSerLen), "passport_serial", "passport serial must consist of 4 digits")
}

func validatePassportNumber(v *validator.Validator, number int) {
	v.CheckField(validator.Positive(number), "passport_number", "must be a positive number")
	v.CheckField(validator.DigitsInNumber(number, passportNumLen), "passport_number", "passport number must consist of 6 digits")
}

func validateINN(v *validator.Validator, inn string) {
	v.CheckField(validator.ExactRunes(inn, innLen), "inn", "must be exactly 12 characters long")
	v.CheckField(validator.OnlyDigits(inn), "inn", "must contain only digits")
}

func validatePhone(v *validator.Validator, phone string) {
	v.CheckField(validator.MaxRunes(phone, maxPhoneLen), "phone", "must not be more than 20 characters long")
	v.CheckField(validator.Matches(phone, validator.PhoneRX), "phone", "must match +X (XXX) XXX-XX-XX")
}

func validateBirthday(v *validator.Validator, birthday model.Date, today time.Time) {
	if birthday.IsZero() {
		v.AddFieldError("birthday", "is required")
		return
	}

	day := model.DateOf(today)
	v.CheckField(!birthday.After(day.Time), "birthday", "cannot be in the future")
	v.CheckField(IsAdult(birthday, today), "birthday", "you must be at least 18 years old")
}

// IsAdult reports whether someone born on birthday is at least 18 on today,
// using a fixed 365*18+1 day offset.
func IsAdult(birthday model.Date, today time.Time) bool {
	threshold := model.DateOf(today).AddDays(-adultDays)
	return !birthday.After(threshold.Time)
}
