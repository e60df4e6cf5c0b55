package dev

import (
	"encoding/json"
	"fmt"
	"io"
)

func Dump(w io.Writer, el interface{}) error {
	elJson, err := json.MarshalIndent(el, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(elJson))
	return err
}
