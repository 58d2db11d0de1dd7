package models

import (
	"time"
)

type User struct {
	FullName  string    `json:"fullName" dynamodbav:"full_name"`
	Email     string    `json:"email" dynamodbav:"email"`
	Phone     string    `json:"phone" dynamodbav:"phone"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}

func (u *User) GetPK() string {
	return "USER!" + u.Phone
}

func (u *User) GetSK() string {
	return "METADATA"
}
