package shared

import "context"

// Actor is the authenticated identity acting on orders and inventory. It is
// resolved by the authentication collaborator and carried through context.
type Actor struct {
	ID         int64
	Name       string
	Role       Role
	Department Department
	Active     bool
}

// IsCEO reports whether the actor holds the CEO role.
func (a Actor) IsCEO() bool {
	return a.Role == RoleCEO
}

// MayActFor reports whether the actor may perform department-gated work.
// The CEO may act for any department.
func (a Actor) MayActFor(dept Department) bool {
	return a.IsCEO() || a.Department == dept
}

type actorContextKey struct{}

// ContextWithActor stores the acting user in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the acting user from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
