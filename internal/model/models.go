package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ID = uint

func init() {
	// Amounts travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type User struct {
	ID        ID        `json:"id" db:"id"`
	CreatedAt time.Time `json:"-" db:"created_at"`
	UpdatedAt time.Time `json:"-" db:"updated_at"`

	Email          string `json:"email" db:"email"`
	HashedPassword string `json:"-" db:"hashed_password"`
	IsActive       bool   `json:"is_active" db:"is_active"`
	IsSpec         bool   `json:"is_spec" db:"is_spec"`

	FirstName  string `json:"first_name" db:"first_name"`
	SecondName string `json:"second_name" db:"second_name"`
	LastName   string `json:"last_name" db:"last_name"`
	Birthday   Date   `json:"birthday" db:"birthday"`

	PassportSerial int    `json:"passport_serial" db:"passport_serial"`
	PassportNumber int    `json:"passport_number" db:"passport_number"`
	GottenBy       string `json:"gotten_by" db:"gotten_by"`
	INN            string `json:"inn" db:"inn"`

	RegistrationAddress string          `json:"registration_address" db:"registration_address"`
	CurrentJob          string          `json:"current_job" db:"current_job"`
	PerMonthProfit      decimal.Decimal `json:"per_month_profit" db:"per_month_profit"`
	Phone               string          `json:"phone" db:"phone"`
	FamilyStatus        string          `json:"family_status" db:"family_status"`
}

func (u User) FullName() string {
	return u.FirstName + " " + u.SecondName + " " + u.LastName
}

type Order struct {
	ID         ID              `json:"id" db:"id"`
	CreatedAt  time.Time       `json:"date" db:"created_at"`
	CreditSize decimal.Decimal `json:"credit_size" db:"credit_size"`
	Period     int             `json:"period" db:"period"`
	Target     string          `json:"target" db:"target"`
	Status     OrderStatus     `json:"status" db:"status"`
	Active     bool            `json:"active" db:"active"`
	UserID     ID              `json:"user_id" db:"user_id"`

	User     *User     `json:"user,omitempty" db:"-"`
	Response *Response `json:"response" db:"-"`
}

type Response struct {
	ID         ID              `json:"id" db:"id"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	OrderID    ID              `json:"order_id" db:"order_id"`
	Percent    decimal.Decimal `json:"percent" db:"percent"`
	MonthlyPay decimal.Decimal `json:"monthly_pay" db:"monthly_pay"`

	Order *Order `json:"order,omitempty" db:"-"`
}

type Credit struct {
	ID          ID              `json:"id" db:"id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UserID      ID              `json:"user_id" db:"user_id"`
	ResponseID  *ID             `json:"response_id" db:"response_id"`
	NextPayDate Date            `json:"next_pay_date" db:"next_pay_date"`
	RemainToPay decimal.Decimal `json:"remain_to_pay" db:"remain_to_pay"`
	MonthlyPay  decimal.Decimal `json:"monthly_pay" db:"monthly_pay"`
	Percent     decimal.Decimal `json:"percent" db:"percent"`

	User *User `json:"user,omitempty" db:"-"`
}
