package dev

import (
	"github.com/nu7hatch/gouuid"
	"time"
)

// Error is a failure worth keeping next to the record it happened in.
type Error struct {
	Id        string                 `json:"id"`
	Time      time.Time              `json:"time"`
	Component string                 `json:"component"`
	Name      string                 `json:"name"`
	Error     string                 `json:"error"`
	Extra     map[string]interface{} `json:"extra"`
}

func (e Error) Slug() string {
	return e.Id
}

func NewError(component, name string, err error, extra map[string]interface{}) Error {
	id := ""
	if u, uerr := uuid.NewV4(); uerr == nil {
		id = u.String()
	}

	msg := ""
	if err != nil {
		msg = err.Error()
	}

	return Error{
		Id:        id,
		Time:      time.Now(),
		Component: component,
		Name:      name,
		Error:     msg,
		Extra:     extra,
	}
}
