package model

import "github.com/shopspring/decimal"

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterUserInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	FirstName  string `json:"first_name"`
	SecondName string `json:"second_name"`
	LastName   string `json:"last_name"`
	Birthday   Date   `json:"birthday"`

	PassportSerial int    `json:"passport_serial"`
	PassportNumber int    `json:"passport_number"`
	GottenBy       string `json:"gotten_by"`
	INN            string `json:"inn"`

	RegistrationAddress string          `json:"registration_address"`
	CurrentJob          string          `json:"current_job"`
	PerMonthProfit      decimal.Decimal `json:"per_month_profit"`
	Phone               string          `json:"phone"`
	FamilyStatus        string          `json:"family_status"`
}

type OrderInput struct {
	UserID     ID              `json:"user_id"`
	CreditSize decimal.Decimal `json:"credit_size"`
	Period     int             `json:"period"`
	Target     string          `json:"target"`
}

type ResponseInput struct {
	OrderID    ID              `json:"order_id"`
	Percent    decimal.Decimal `json:"percent"`
	MonthlyPay decimal.Decimal `json:"monthly_pay"`
}

type CreditInput struct {
	UserID      ID              `json:"user_id"`
	ResponseID  *ID             `json:"response_id,omitempty"`
	NextPayDate Date            `json:"next_pay_date"`
	RemainToPay decimal.Decimal `json:"remain_to_pay"`
	MonthlyPay  decimal.Decimal `json:"monthly_pay"`
	Percent     decimal.Decimal `json:"percent"`
}
