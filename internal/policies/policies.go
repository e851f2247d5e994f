// Package policies decide quem acessa o quê: RBAC via casbin para rotas e
// regras de posse para recursos de um usuário.
package policies

import (
	"fmt"
	"strings"

	"github.com/PauloHFS/faceauth/internal/db"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && r.act == p.act
`

// DefaultPolicy: admin herda tudo de user.
var DefaultPolicy = []string{
	"p, user, /dashboard, GET",
	"p, user, /api/user-profile, GET",
	"p, user, /api/verifications, GET",
	"p, user, /faces/:filename, GET",
	"g, admin, user",
}

type Enforcer struct {
	e *casbin.Enforcer
}

func NewEnforcer(policy []string) (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rbac model: %w", err)
	}
	a := stringadapter.NewAdapter(strings.Join(policy, "\n"))
	e, err := casbin.NewEnforcer(m, a)
	if err != nil {
		return nil, fmt.Errorf("failed to build enforcer: %w", err)
	}
	return &Enforcer{e: e}, nil
}

func MustDefault() *Enforcer {
	e, err := NewEnforcer(DefaultPolicy)
	if err != nil {
		panic(err)
	}
	return e
}

// Can reporta se o papel do usuário permite act sobre o caminho obj.
func (p *Enforcer) Can(user db.User, obj, act string) bool {
	ok, err := p.e.Enforce(user.RoleID, obj, act)
	return err == nil && ok
}

// CanViewFace: só o dono da imagem de referência ou um admin.
func CanViewFace(actor, owner db.User) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.ID == owner.ID
}
