package promo

import "time"

// Grant types. "lifetime" entitles the user to the lifetime tier;
// "pro_gift" is a complimentary pro subscription.
const (
	GrantLifetime = "lifetime"
	GrantProGift  = "pro_gift"
)

// User is a promotional entitlement row. The uid is the app user id; the
// email is kept for support lookups only.
type User struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email,omitempty"`
	GrantType string    `json:"grantType"`
	GrantedAt time.Time `json:"grantedAt"`
}
