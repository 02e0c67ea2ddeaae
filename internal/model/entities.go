package model

// Entities returns the fixed list of managed models in migration order.
func Entities() []any {
	return []any{&Role{}, &User{}, &Project{}, &Task{}, &Comment{}}
}
