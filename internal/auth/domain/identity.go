package domain

// Identity is the caller a verified token belongs to
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}
