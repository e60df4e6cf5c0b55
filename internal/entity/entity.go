package entity

// Entity is anything persisted under a stable document id.
type Entity interface {
	Slug() string
}
