package users

import (
	"time"

	"github.com/NeoEdge09/remastered-starter-kit/pkg/httputil"
)

// ModelUser is the activity log model name of user accounts
const ModelUser = "User"

// Account is a user as shown on the admin pages, with its role names
type Account struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Account) attributes() map[string]interface{} {
	return map[string]interface{}{
		"name":      a.Name,
		"email":     a.Email,
		"is_active": a.IsActive,
		"roles":     a.Roles,
	}
}

// Input is the create/update body of an account. Password may be left empty
// on update to keep the current one. A nil Roles leaves the assignments
// untouched on update.
type Input struct {
	Name                 string   `json:"name"`
	Email                string   `json:"email"`
	Password             string   `json:"password"`
	PasswordConfirmation string   `json:"password_confirmation"`
	IsActive             *bool    `json:"is_active"`
	Roles                *[]int64 `json:"roles"`
}

// ListParams are the table options of the user list
type ListParams struct {
	Search   string
	Role     string
	IsActive *bool
	Sort     httputil.SortParams
	Page     httputil.PageParams
}

// SortColumns are the sortable user list columns
var SortColumns = []string{"name", "email", "is_active", "created_at"}
