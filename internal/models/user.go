package models

import (
	"time"

	"github.com/huangang/taskpulse/backend/internal/store"
)

// User is a tracker account. The password hash is stored but never rendered.
type User struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserProfile is the public view of a User.
type UserProfile struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) Profile() UserProfile {
	return UserProfile{Email: u.Email, Name: u.Name, Role: u.Role, CreatedAt: u.CreatedAt}
}

func (u *User) Key() store.Key { return UserKey(u.Email) }

// Item lays the user out as PK=USER#email, SK=PROFILE, indexed under USERS.
func (u *User) Item() (store.Item, error) {
	return toItem(u, EntityUser, store.Item{
		store.AttrPK:     PrefixUser + u.Email,
		store.AttrSK:     SKProfile,
		store.AttrGSI1PK: UsersPartition,
		store.AttrGSI1SK: PrefixUser + u.Email,
	})
}

func UserFromItem(item store.Item) (*User, error) {
	var u User
	if err := fromItem(item, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
