// Package users manages administrator accounts: CRUD, role assignment and
// activation. Disabling an account or changing its password ends every
// session it holds, and the last active super administrator can be neither
// disabled, stripped of the role nor deleted.
package users
