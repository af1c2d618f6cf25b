package models

type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	CompanyID    int    `json:"company_id"` // 0 = operator account, sees every sensor
	PasswordHash string `json:"-"`          // don’t expose hash
}
